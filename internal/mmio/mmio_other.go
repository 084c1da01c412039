//go:build !unix

package mmio

import "fmt"

// remap on non-unix platforms falls back to reading the whole file into a
// plain Go slice; writes are tracked as dirty ranges and written back to the
// descriptor explicitly on Sync/Close, since we have no portable mmap here.
func (mf *File) remap() error {
	if mf.size == 0 {
		mf.data = []byte{}
		return nil
	}
	buf := make([]byte, mf.size)
	if _, err := mf.f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("mmio: read %s: %w", mf.path, err)
	}
	mf.data = buf
	return nil
}

func (mf *File) unmapLocked() error {
	mf.data = nil
	return nil
}

// flushRanges writes each coalesced dirty range back to the file descriptor.
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
		if _, err := mf.f.WriteAt(mf.data[start:end], start); err != nil {
			return fmt.Errorf("mmio: writeback %s: %w", mf.path, err)
		}
	}
	return nil
}
