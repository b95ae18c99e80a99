package region

import (
	"fmt"
	"os"
)

// Mapped is a region backed by a memory mapping.
//
// The whole reservation is mapped once; Sbrk only moves the break. When the
// region is file backed the file is extended before the break moves, so no
// page past the end of the file is ever touched.
type Mapped struct {
	f    *os.File // nil for anonymous mappings
	data []byte   // the full reservation
	brk  int
}

// Sbrk extends the region by n bytes and returns the old break.
func (m *Mapped) Sbrk(n int) (int, error) {
	if m.data == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrNegativeGrow
	}
	old := m.brk
	if n > len(m.data)-old {
		return 0, fmt.Errorf("%w: break=%d increment=%d max=%d", ErrExhausted, old, n, len(m.data))
	}
	if m.f != nil {
		if err := m.extendFile(int64(old + n)); err != nil {
			return 0, fmt.Errorf("%w: extend %s: %w", ErrExhausted, m.f.Name(), err)
		}
	}
	m.brk = old + n
	return old, nil
}

// Bytes returns the mapped contents up to the current break.
func (m *Mapped) Bytes() []byte { return m.data[:m.brk] }

// Lo returns the lowest valid offset.
func (m *Mapped) Lo() int { return 0 }

// Hi returns the current break (exclusive upper bound).
func (m *Mapped) Hi() int { return m.brk }

// Max returns the size of the reservation.
func (m *Mapped) Max() int { return len(m.data) }

// Path returns the backing file name, or "" for anonymous mappings.
func (m *Mapped) Path() string {
	if m.f == nil {
		return ""
	}
	return m.f.Name()
}

func (m *Mapped) checkSyncRange(off, length int) (int, int, bool) {
	if m.f == nil || m.data == nil || length <= 0 || off >= m.brk {
		return 0, 0, false
	}
	if off < 0 {
		off = 0
	}
	end := min(off+length, m.brk)
	return off, end, true
}
