package volume

import "github.com/joshuapare/nodestore/internal/buf"

// A freeRecordsBlock is one control-structure page holding reusable slot
// offsets for a single size class. Entries are packed from index 0 upward;
// there is no persisted count — file offset 0 always falls inside the
// header block, so it can never be a legitimate free-slot offset and
// doubles as the "unused slot" sentinel (spec.md §9: the allocator is not a
// hot path, so reconstructing the fill count by scanning on load is fine).
const nextPtrOff = FreeRecordsBlockCount * 8

type freeRecordsBlock struct {
	entries [FreeRecordsBlockCount]int64 // free slot offsets, 0 = unused
	next    RecordID                     // next block in this chain
}

func newFreeRecordsBlock() *freeRecordsBlock {
	return &freeRecordsBlock{next: NoRecord}
}

func decodeFreeRecordsBlock(b []byte) (*freeRecordsBlock, error) {
	if len(b) < ControlBlockSize {
		return nil, ErrCorrupt
	}
	fb := &freeRecordsBlock{}
	for i := 0; i < FreeRecordsBlockCount; i++ {
		off := i * 8
		fb.entries[i] = int64(buf.U64LE(b[off : off+8]))
	}
	fb.next = RecordID(buf.U64LE(b[nextPtrOff : nextPtrOff+8]))
	return fb, nil
}

func (fb *freeRecordsBlock) encode() []byte {
	b := make([]byte, ControlBlockSize)
	for i, off := range fb.entries {
		buf.PutU64LE(b[i*8:i*8+8], uint64(off))
	}
	buf.PutU64LE(b[nextPtrOff:nextPtrOff+8], uint64(fb.next))
	return b
}

// fill returns the number of occupied entries, scanning from the end since
// push/pop always operate on the highest empty/lowest filled boundary.
func (fb *freeRecordsBlock) fill() int {
	n := 0
	for i := FreeRecordsBlockCount - 1; i >= 0; i-- {
		if fb.entries[i] != 0 {
			n = i + 1
			break
		}
	}
	return n
}

func (fb *freeRecordsBlock) isFull() bool {
	return fb.entries[FreeRecordsBlockCount-1] != 0
}

func (fb *freeRecordsBlock) isEmpty() bool {
	return fb.fill() == 0
}

// push records offset as free, returning false if the block is already full.
func (fb *freeRecordsBlock) push(offset int64) bool {
	n := fb.fill()
	if n >= FreeRecordsBlockCount {
		return false
	}
	fb.entries[n] = offset
	return true
}

// pop removes and returns the most recently pushed free offset, returning
// ok=false if the block is empty.
func (fb *freeRecordsBlock) pop() (offset int64, ok bool) {
	n := fb.fill()
	if n == 0 {
		return 0, false
	}
	offset = fb.entries[n-1]
	fb.entries[n-1] = 0
	return offset, true
}
