package alloc

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/dirty"
	"github.com/joshuapare/heapkit/heap/region"
	"github.com/joshuapare/heapkit/internal/format"
)

func TestNew_InitialLayout(t *testing.T) {
	r := region.NewMemory(0)
	a, err := New(r, nil, nil)
	require.NoError(t, err)

	require.Equal(t, 12, a.NumClasses())
	require.Equal(t, 104, a.prologue)
	require.Equal(t, format.FirstBlock(12)+format.ChunkSize, r.Hi())
	require.Equal(t, 1, a.Stats().GrowCalls)
	require.Equal(t, format.ChunkSize, a.FreeBytes())
	require.NoError(t, a.CheckHeap(false))
}

func TestNew_RegionTooSmall(t *testing.T) {
	_, err := New(region.NewMemory(200), nil, nil)
	require.ErrorIs(t, err, ErrNoSpace)
	require.ErrorIs(t, err, region.ErrExhausted)
}

func TestNew_BadConfig(t *testing.T) {
	_, err := New(region.NewMemory(0), nil, &Config{ChunkSize: 8})
	require.ErrorIs(t, err, ErrBadConfig)

	bad := SizeClassConfig{Name: "bad", SmallMax: 128, GrowthFactor: 1.0, LargeMin: 4096}
	_, err = New(region.NewMemory(0), nil, &Config{Classes: &bad})
	require.ErrorIs(t, err, ErrBadConfig)
}

// A freed block is reused by the next request that fits it, without growth.
func TestMalloc_ReusesFreedBlock(t *testing.T) {
	a := newTestAllocator(t, 0, nil)

	p1 := mustMalloc(t, a, 16)
	p2 := mustMalloc(t, a, 32)
	require.Equal(t, 24, blockSize(a, p1))
	require.Equal(t, 40, blockSize(a, p2))
	require.NotEqual(t, p1, p2)

	require.NoError(t, a.Free(p1))
	require.NoError(t, a.CheckHeap(false))

	p3 := mustMalloc(t, a, 8)
	require.Equal(t, p1, p3)
	require.Equal(t, 1, a.Stats().GrowCalls, "no growth beyond the initial chunk")
	require.NoError(t, a.CheckHeap(false))
}

// Freeing neighbours merges them so a larger request fits without growth.
func TestFree_CoalescesNeighbours(t *testing.T) {
	a := newTestAllocator(t, 0, nil)

	pa := mustMalloc(t, a, 100)
	pb := mustMalloc(t, a, 100)
	require.Equal(t, 104, blockSize(a, pa))
	require.Equal(t, 104, blockSize(a, pb))
	require.Equal(t, 2, a.Stats().GrowCalls)

	require.NoError(t, a.Free(pa))
	require.NoError(t, a.Free(pb))
	require.NoError(t, a.CheckHeap(false))
	require.Equal(t, []int{0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, a.FreeLists())
	require.Equal(t, 336, a.FreeBytes())

	p := mustMalloc(t, a, 180)
	require.Equal(t, pa, p)
	require.Equal(t, 2, a.Stats().GrowCalls)
	require.NoError(t, a.CheckHeap(false))
}

func TestSizeClass_Boundaries(t *testing.T) {
	a := newTestAllocator(t, 0, nil)

	tests := []struct {
		size  int
		class int
	}{
		{24, 0},
		{128, 0},
		{129, 1},
		{256, 1},
		{257, 2},
		{16384, 7},
		{16385, 8},
		{131072, 10},
		{131073, 11},
		{1 << 30, 11},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.class, a.SizeClass(tt.size), "size %d", tt.size)
	}
}

func TestFree_LargestThreshold(t *testing.T) {
	a := newTestAllocator(t, 0, nil)

	// Guards keep the released blocks from merging with anything.
	under := mustMalloc(t, a, 131068)
	mustMalloc(t, a, 8)
	over := mustMalloc(t, a, 131069)
	mustMalloc(t, a, 8)
	require.Equal(t, 131072, blockSize(a, under))
	require.Equal(t, 131080, blockSize(a, over))

	require.NoError(t, a.Free(under))
	require.NoError(t, a.Free(over))
	require.NoError(t, a.CheckHeap(false))

	want := make([]int, a.NumClasses())
	want[0] = 1 // tail of the last growth
	want[10] = 1
	want[11] = 1
	require.Equal(t, want, a.FreeLists())

	// Each block is found again in its own list without growing.
	grows := a.Stats().GrowCalls
	require.Equal(t, over, mustMalloc(t, a, 131069))
	require.Equal(t, under, mustMalloc(t, a, 131068))
	require.Equal(t, grows, a.Stats().GrowCalls)
	require.NoError(t, a.CheckHeap(false))
}

func TestMalloc_NonPositive(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	for _, n := range []int{0, -1, math.MinInt} {
		p, err := a.Malloc(n)
		require.NoError(t, err)
		require.Equal(t, Nil, p)
	}
	require.NoError(t, a.CheckHeap(false))
}

func TestMalloc_AdjustedSizes(t *testing.T) {
	tests := []struct {
		req  int
		want int
	}{
		{1, 24},
		{20, 24},
		{21, 32},
		{100, 104},
		{180, 184},
		{4092, 4096},
	}
	for _, tt := range tests {
		got, err := adjustSize(tt.req)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "request %d", tt.req)
	}

	_, err := adjustSize(math.MaxInt)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestMalloc_Alignment(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	for n := 1; n < 300; n += 7 {
		p := mustMalloc(t, a, n)
		require.Zero(t, int(p)%format.Alignment, "request %d", n)
		require.GreaterOrEqual(t, a.Capacity(p), n)
	}
	require.NoError(t, a.CheckHeap(false))
}

func TestMalloc_NoSpace(t *testing.T) {
	a := newTestAllocator(t, 1024, nil)
	before := a.r.Hi()

	p, err := a.Malloc(2000)
	require.ErrorIs(t, err, ErrNoSpace)
	require.ErrorIs(t, err, region.ErrExhausted)
	require.Equal(t, Nil, p)
	require.Equal(t, before, a.r.Hi())
	require.NoError(t, a.CheckHeap(false))

	// Smaller requests still succeed.
	mustMalloc(t, a, 64)
}

func TestMalloc_TooLarge(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	_, err := a.Malloc(math.MaxInt)
	require.ErrorIs(t, err, ErrTooLarge)
	require.NoError(t, a.CheckHeap(false))
}

func TestMalloc_SplitPolicy(t *testing.T) {
	a := newTestAllocator(t, 0, nil)

	// 168-byte chunk: a 144-byte block leaves 24, enough to split.
	p := mustMalloc(t, a, 140)
	require.Equal(t, 144, blockSize(a, p))
	require.Equal(t, 1, a.Stats().SplitCount)
	require.Equal(t, 24, a.FreeBytes())

	// The 24-byte remainder is taken whole by the next small request.
	q := mustMalloc(t, a, 20)
	require.Equal(t, 24, blockSize(a, q))
	require.Zero(t, a.FreeBytes())
	require.NoError(t, a.CheckHeap(false))

	// A leftover below the minimum block is donated to the allocation.
	b := newTestAllocator(t, 0, nil)
	r := mustMalloc(t, b, 148) // 152 of 168: 16 left over
	require.Equal(t, 168, blockSize(b, r))
	require.Zero(t, b.Stats().SplitCount)
	require.NoError(t, b.CheckHeap(false))
}

func TestMalloc_GrowHook(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	var grown []int
	a.onGrow = func(n int) { grown = append(grown, n) }

	mustMalloc(t, a, 160)  // fits the initial chunk
	mustMalloc(t, a, 1000) // grows by the request, larger than a chunk
	mustMalloc(t, a, 8)    // grows by one chunk

	require.Equal(t, []int{1008, 168}, grown)
}

func TestFree_Nil(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	require.NoError(t, a.Free(Nil))
	require.Zero(t, a.Stats().FreeCalls)
}

func TestFree_Misuse(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	p := mustMalloc(t, a, 32)
	q := mustMalloc(t, a, 32)

	for _, bad := range []Ptr{Ptr(8), p + 1, p + 4, Ptr(a.r.Hi()), Ptr(a.r.Hi() + 64)} {
		err := a.Free(bad)
		require.ErrorIs(t, err, ErrBadPointer, "ptr 0x%X", int(bad))
	}

	require.NoError(t, a.Free(p))
	require.ErrorIs(t, a.Free(p), ErrDoubleFree)
	require.NoError(t, a.CheckHeap(false))

	// Once merged into a free neighbour the stale header still reads free.
	require.NoError(t, a.Free(q))
	require.ErrorIs(t, a.Free(q), ErrDoubleFree)
	require.NoError(t, a.CheckHeap(false))
}

func TestFree_CoalesceCases(t *testing.T) {
	tests := []struct {
		name      string
		free      []int // indexes freed before the target
		target    int
		wantCase  coalesceCase
		wantLists int // free blocks on lists afterwards
	}{
		{"neither", nil, 1, neitherFree, 2},
		{"predecessor", []int{0}, 1, predecessorFree, 2},
		{"successor", []int{2}, 1, successorFree, 2},
		{"both", []int{0, 2}, 1, bothFree, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAllocator(t, 0, &Config{ChunkSize: 4096})
			ptrs := make([]Ptr, 4) // ptrs[3] keeps the tail apart from the chunk remainder
			for i := range ptrs {
				ptrs[i] = mustMalloc(t, a, 40)
			}
			for _, i := range tt.free {
				require.NoError(t, a.Free(ptrs[i]))
			}

			data := a.bytes()
			bp := int(ptrs[tt.target])
			hdr := blockHeader(data, bp)
			next := blockHeader(data, bp+hdr.Size())
			require.Equal(t, tt.wantCase, classifyNeighbours(hdr.PrevAllocated(), next.Allocated()))

			require.NoError(t, a.Free(ptrs[tt.target]))
			require.NoError(t, a.CheckHeap(false))

			total := 0
			for _, n := range a.FreeLists() {
				total += n
			}
			require.Equal(t, tt.wantLists, total)
		})
	}
}

func TestRealloc(t *testing.T) {
	a := newTestAllocator(t, 0, nil)

	p := mustMalloc(t, a, 10)
	require.Equal(t, 20, a.Capacity(p))
	fill(a.Payload(p), 0x40)

	// Fits the existing capacity.
	same, err := a.Realloc(p, 20)
	require.NoError(t, err)
	require.Equal(t, p, same)

	// Shrinking never moves.
	same, err = a.Realloc(p, 4)
	require.NoError(t, err)
	require.Equal(t, p, same)

	// Growing moves and preserves the old payload.
	q, err := a.Realloc(p, 100)
	require.NoError(t, err)
	require.NotEqual(t, p, q)
	require.GreaterOrEqual(t, a.Capacity(q), 100)
	requireFilled(t, a.Payload(q)[:20], 0x40)
	require.ErrorIs(t, a.Free(p), ErrDoubleFree, "old block was released")
	require.NoError(t, a.CheckHeap(false))
}

func TestRealloc_EdgeCases(t *testing.T) {
	a := newTestAllocator(t, 0, nil)

	p, err := a.Realloc(Nil, 32)
	require.NoError(t, err)
	require.NotEqual(t, Nil, p)

	n, err := a.Realloc(p, 0)
	require.NoError(t, err)
	require.Equal(t, Nil, n)
	require.Equal(t, 1, a.Stats().FreeCalls)

	_, err = a.Realloc(Ptr(12), 64)
	require.ErrorIs(t, err, ErrBadPointer)

	_, err = a.Realloc(Nil, -1)
	require.ErrorIs(t, err, ErrNegativeSize)
	require.NoError(t, a.CheckHeap(false))
}

func TestRealloc_FailureKeepsBlock(t *testing.T) {
	a := newTestAllocator(t, 1024, nil)
	p := mustMalloc(t, a, 64)
	fill(a.Payload(p), 7)

	q, err := a.Realloc(p, 4096)
	require.ErrorIs(t, err, ErrNoSpace)
	require.Equal(t, Nil, q)
	requireFilled(t, a.Payload(p), 7)
	require.NoError(t, a.Free(p))
	require.NoError(t, a.CheckHeap(false))
}

func TestCalloc(t *testing.T) {
	a := newTestAllocator(t, 0, nil)

	// Dirty a block, release it, and get it back zeroed.
	p := mustMalloc(t, a, 96)
	fill(a.Payload(p), 0xA0)
	require.NoError(t, a.Free(p))

	q, err := a.Calloc(12, 8)
	require.NoError(t, err)
	require.Equal(t, p, q)
	require.Equal(t, make([]byte, 96), a.Payload(q)[:96])

	z, err := a.Calloc(0, 8)
	require.NoError(t, err)
	require.Equal(t, Nil, z)

	_, err = a.Calloc(math.MaxInt/2, 3)
	require.ErrorIs(t, err, ErrOverflow)
	_, err = a.Calloc(-1, 3)
	require.ErrorIs(t, err, ErrNegativeSize)
	require.NoError(t, a.CheckHeap(false))
}

func TestPayload_Invalid(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	require.Nil(t, a.Payload(Nil))
	require.Nil(t, a.Payload(Ptr(3)))

	p := mustMalloc(t, a, 8)
	require.NoError(t, a.Free(p))
	require.Nil(t, a.Payload(p))
}

func TestAllocator_DirtyTracking(t *testing.T) {
	dt := dirty.NewTracker()
	a, err := New(region.NewMemory(0), dt, nil)
	require.NoError(t, err)
	require.Positive(t, dt.Len())

	dt.Reset()
	p := mustMalloc(t, a, 5000)
	require.Positive(t, dt.Len())
	for _, r := range dt.Ranges() {
		require.Zero(t, r.Off%format.PageSize)
		require.Zero(t, r.Len%format.PageSize)
	}

	dt.Reset()
	require.NoError(t, a.Free(p))
	require.Positive(t, dt.Len())
}

func TestAllocator_MappedRegion(t *testing.T) {
	r, err := region.NewMapped(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	a, err := New(r, nil, nil)
	require.NoError(t, err)

	var ptrs []Ptr
	for i := range 64 {
		p := mustMalloc(t, a, 16*(i+1))
		fill(a.Payload(p), byte(i))
		ptrs = append(ptrs, p)
	}
	for i, p := range ptrs {
		requireFilled(t, a.Payload(p), byte(i))
		if i%2 == 0 {
			require.NoError(t, a.Free(p))
		}
	}
	require.NoError(t, a.CheckHeap(false))
}

func TestPrintStats(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	p := mustMalloc(t, a, 64)
	require.NoError(t, a.Free(p))

	var out bytes.Buffer
	a.PrintStats(&out)
	require.Contains(t, out.String(), "ALLOCATOR STATISTICS")
	require.Contains(t, out.String(), "PowerOfTwo (12 lists)")
	require.Contains(t, out.String(), "Free calls:         1")
}

func TestCheckHeap_DetectsCorruption(t *testing.T) {
	a := newTestAllocator(t, 0, nil)
	p := mustMalloc(t, a, 40)
	mustMalloc(t, a, 40)
	require.NoError(t, a.Free(p))

	// Overwrite the free block's footer.
	data := a.bytes()
	footer := int(p) + blockHeader(data, int(p)).Size() - 8
	format.PutU32(data, footer, 0xDEAD0)

	err := a.CheckHeap(false)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrBadPointer))
	require.Contains(t, err.Error(), "does not match footer")
}
