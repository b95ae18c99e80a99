package dirty

// DirtyTracker is the minimal interface for reporting modified byte ranges.
// off is the offset from the start of the heap, length the number of bytes.
type DirtyTracker interface {
	Add(off, length int)
}

// Syncer persists a byte range of a heap image. region.Mapped implements it.
type Syncer interface {
	Sync(off, length int) error
}
