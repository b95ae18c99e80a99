// Package mmfile maps heap image files read-only for inspection tools.
package mmfile

import (
	"errors"
	"fmt"
)

// ErrTooLarge indicates a file that does not fit in the address space.
var ErrTooLarge = errors.New("mmfile: file too large to map")

// Image is a read-only view of a file.
type Image struct {
	path    string
	data    []byte
	release func() error
}

// Bytes returns the file contents. The slice must not be modified and is
// invalid after Close.
func (im *Image) Bytes() []byte { return im.data }

// Path returns the mapped file name.
func (im *Image) Path() string { return im.path }

// Len returns the file size.
func (im *Image) Len() int { return len(im.data) }

// Close releases the mapping. Closing twice is a no-op.
func (im *Image) Close() error {
	if im.release == nil {
		return nil
	}
	release := im.release
	im.release, im.data = nil, nil
	if err := release(); err != nil {
		return fmt.Errorf("mmfile: close %s: %w", im.path, err)
	}
	return nil
}
