package region

import "fmt"

// DefaultMaxHeap is the default reservation for a region: 20 MiB.
const DefaultMaxHeap = 20 << 20

// Memory is a region backed by a Go byte slice.
//
// The full capacity is reserved when the region is created so that slices
// returned by Bytes stay valid across growth.
type Memory struct {
	data []byte // len is the current break, cap is the reservation
}

// NewMemory creates a region that can grow up to maxSize bytes.
// A non-positive maxSize selects DefaultMaxHeap.
func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = DefaultMaxHeap
	}
	return &Memory{data: make([]byte, 0, maxSize)}
}

// Sbrk extends the region by n bytes and returns the old break, which is the
// offset of the first new byte.
func (m *Memory) Sbrk(n int) (int, error) {
	if n < 0 {
		return 0, ErrNegativeGrow
	}
	old := len(m.data)
	if n > cap(m.data)-old {
		return 0, fmt.Errorf("%w: break=%d increment=%d max=%d", ErrExhausted, old, n, cap(m.data))
	}
	m.data = m.data[:old+n]
	return old, nil
}

// Bytes returns the region contents up to the current break.
func (m *Memory) Bytes() []byte { return m.data }

// Lo returns the lowest valid offset.
func (m *Memory) Lo() int { return 0 }

// Hi returns the current break (exclusive upper bound).
func (m *Memory) Hi() int { return len(m.data) }

// Max returns the size of the reservation.
func (m *Memory) Max() int { return cap(m.data) }
