package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/heap/region"
)

// newTestAllocator creates an allocator over a fresh in-memory region.
func newTestAllocator(t *testing.T, maxHeap int, cfg *Config) *Allocator {
	t.Helper()
	a, err := New(region.NewMemory(maxHeap), nil, cfg)
	require.NoError(t, err)
	require.NoError(t, a.CheckHeap(false))
	return a
}

func mustMalloc(t *testing.T, a *Allocator, size int) Ptr {
	t.Helper()
	p, err := a.Malloc(size)
	require.NoError(t, err)
	require.NotEqual(t, Nil, p)
	return p
}

func blockSize(a *Allocator, p Ptr) int {
	return a.Capacity(p) + 4
}

func fill(b []byte, seed byte) {
	for i := range b {
		b[i] = seed + byte(i)
	}
}

func requireFilled(t *testing.T, b []byte, seed byte) {
	t.Helper()
	for i := range b {
		if b[i] != seed+byte(i) {
			require.Failf(t, "payload corrupted", "byte %d = 0x%02X, want 0x%02X", i, b[i], seed+byte(i))
		}
	}
}

func blockHeader(data []byte, bp int) block.Tag {
	return block.HeaderTag(data, bp)
}
