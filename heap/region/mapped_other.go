//go:build !unix

package region

import "os"

// NewMapped falls back to a heap-allocated reservation when mmap is not available.
func NewMapped(maxSize int) (*Mapped, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxHeap
	}
	return &Mapped{data: make([]byte, maxSize)}, nil
}

// CreateFile creates (or truncates) path; Sync writes dirty ranges back with WriteAt.
func CreateFile(path string, maxSize int) (*Mapped, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxHeap
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	return &Mapped{f: f, data: make([]byte, maxSize)}, nil
}

func (m *Mapped) extendFile(size int64) error {
	return m.f.Truncate(size)
}

// Sync writes [off, off+length) back to the backing file.
func (m *Mapped) Sync(off, length int) error {
	off, end, ok := m.checkSyncRange(off, length)
	if !ok {
		return nil
	}
	_, err := m.f.WriteAt(m.data[off:end], int64(off))
	return err
}

// Close releases the reservation and closes the backing file, if any.
func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}
	m.data = nil
	if m.f != nil {
		err := m.f.Close()
		m.f = nil
		return err
	}
	return nil
}
