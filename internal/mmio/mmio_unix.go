//go:build unix

package mmio

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// remap establishes (or re-establishes, after Grow) the mapping for the
// current file size. Must be called with mf.mu held.
func (mf *File) remap() error {
	if mf.size == 0 {
		mf.data = []byte{}
		return nil
	}
	data, err := unix.Mmap(int(mf.f.Fd()), 0, int(mf.size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmio: mmap %s: %w", mf.path, err)
	}
	mf.data = data
	return nil
}

// unmapLocked releases the current mapping, if any. Must be called with
// mf.mu held.
func (mf *File) unmapLocked() error {
	if mf.data == nil || len(mf.data) == 0 {
		mf.data = nil
		return nil
	}
	err := unix.Munmap(mf.data)
	mf.data = nil
	if err != nil {
		return fmt.Errorf("mmio: munmap %s: %w", mf.path, err)
	}
	return nil
}

// flushRanges msyncs each coalesced dirty range.
func (mf *File) flushRanges(ranges []dirtyRange) error {
	for _, r := range ranges {
		start := r.off
		end := r.off + r.len
		if end > int64(len(mf.data)) {
			end = int64(len(mf.data))
		}
		if start >= end {
			continue
		}
		if err := unix.Msync(mf.data[start:end], unix.MS_SYNC); err != nil {
			return fmt.Errorf("mmio: msync %s: %w", mf.path, err)
		}
	}
	return nil
}
