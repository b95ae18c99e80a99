//go:build unix

package region

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/heapkit/internal/format"
)

// NewMapped reserves an anonymous private mapping of maxSize bytes.
// A non-positive maxSize selects DefaultMaxHeap.
func NewMapped(maxSize int) (*Mapped, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxHeap
	}
	data, err := unix.Mmap(-1, 0, format.AlignPage(maxSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("region: mmap anonymous: %w", err)
	}
	return &Mapped{data: data[:maxSize]}, nil
}

// CreateFile creates (or truncates) path and maps it shared, so the heap
// image can be flushed to disk with Sync.
func CreateFile(path string, maxSize int) (*Mapped, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxHeap
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), 0, format.AlignPage(maxSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("region: mmap %s: %w", path, err)
	}
	return &Mapped{f: f, data: data[:maxSize]}, nil
}

func (m *Mapped) extendFile(size int64) error {
	return unix.Ftruncate(int(m.f.Fd()), size)
}

// Sync flushes the pages covering [off, off+length) to the backing file.
// Anonymous mappings have nothing to flush.
func (m *Mapped) Sync(off, length int) error {
	off, end, ok := m.checkSyncRange(off, length)
	if !ok {
		return nil
	}
	start := format.TruncPage(off)
	end = min(format.AlignPage(end), len(m.data))
	if err := unix.Msync(m.data[start:end], unix.MS_SYNC); err != nil {
		return fmt.Errorf("region: msync [0x%X, 0x%X): %w", start, end, err)
	}
	return nil
}

// Close unmaps the region and closes the backing file, if any.
// Closing twice is a no-op.
func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data[:cap(m.data)]
	m.data = nil
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		err = nil
	}
	if m.f != nil {
		err = errors.Join(err, m.f.Close())
		m.f = nil
	}
	return err
}
