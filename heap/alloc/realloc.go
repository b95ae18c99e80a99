package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Realloc resizes the block at p to hold at least size bytes.
//
//   - size == 0 frees p and returns Nil
//   - p == Nil behaves like Malloc(size)
//   - if the current block already has room, p is returned unchanged
//
// Otherwise a new block is allocated, the old payload copied into it and the
// old block freed. On failure the old block is left intact.
func (a *Allocator) Realloc(p Ptr, size int) (Ptr, error) {
	if size < 0 {
		return Nil, fmt.Errorf("%w: %d", ErrNegativeSize, size)
	}
	if size == 0 {
		return Nil, a.Free(p)
	}
	if p == Nil {
		return a.Malloc(size)
	}

	bp := int(p)
	if err := a.checkPointer(bp); err != nil {
		return Nil, err
	}
	capacity := block.HeaderTag(a.bytes(), bp).Size() - format.WordSize
	if size <= capacity {
		return p, nil
	}

	np, err := a.Malloc(size)
	if err != nil {
		return Nil, err
	}
	data := a.bytes()
	copy(data[int(np):int(np)+capacity], data[bp:bp+capacity])
	a.markDirty(int(np), capacity)

	if err := a.Free(p); err != nil {
		return Nil, err
	}
	return np, nil
}

// Calloc allocates count*size bytes and zero-fills them.
func (a *Allocator) Calloc(count, size int) (Ptr, error) {
	if count < 0 || size < 0 {
		return Nil, fmt.Errorf("%w: %d x %d", ErrNegativeSize, count, size)
	}
	total, ok := buf.MulSizeSafe(count, size)
	if !ok {
		return Nil, fmt.Errorf("%w: %d x %d", ErrOverflow, count, size)
	}

	p, err := a.Malloc(total)
	if err != nil || p == Nil {
		return p, err
	}
	clear(a.bytes()[int(p) : int(p)+total])
	a.markDirty(int(p), total)
	return p, nil
}
