// Package volume implements the slab-allocated record store that backs a
// single node tree: one volume file, one header control block, a size-class
// free list, and fixed-size record slots sized by doubling (32 bytes
// upward). It has no notion of nodes, properties, or TTLs — those live in
// the node and ttlmgr packages, built on top of RecordID handles.
package volume

import (
	"fmt"
	"sync"

	"github.com/joshuapare/nodestore/internal/mmio"
)

// File is a single open volume: a memory-mapped slab allocator guarded by
// one coarse lock. Every exported method serializes on that lock, matching
// the "single recursive lock guarding the file" contract; Go mutexes are not
// reentrant, so internal helpers that must run while the lock is already
// held are named with a Locked suffix and never taken from an exported
// method that didn't already acquire it.
type File struct {
	mu     sync.Mutex
	path   string
	mf     *mmio.File
	hdr    *header
	closed bool
}

// Create creates a new, empty volume file at path. It fails if path already
// exists.
func Create(path string) (*File, error) {
	mf, err := mmio.Create(path, ControlBlockSize)
	if err != nil {
		return nil, err
	}
	f := &File{path: path, mf: mf, hdr: newHeader()}
	f.persistHeaderLocked()
	if err := f.mf.Sync(); err != nil {
		return nil, err
	}
	return f, nil
}

// Open maps an existing volume file and parses its header.
func Open(path string) (*File, error) {
	mf, err := mmio.Open(path)
	if err != nil {
		return nil, err
	}
	hdr, err := decodeHeader(mf.Bytes())
	if err != nil {
		mf.Close()
		return nil, err
	}
	return &File{path: path, mf: mf, hdr: hdr}, nil
}

// Exists reports whether a volume file already exists at path.
func Exists(path string) bool {
	return mmio.Exists(path)
}

// Path returns the filesystem path this volume was opened or created from.
func (f *File) Path() string {
	return f.path
}

// Close flushes pending writes and releases the mapping. Calling Close again
// returns nil; Allocate, Write, Read, Resize, Free and Sync return ErrClosed
// afterwards.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.mf.Close()
}

// Sync flushes all pending writes to disk without closing the volume.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	return f.mf.Sync()
}

// Allocate reserves a record slot large enough for size bytes, reusing a
// freed slot of the matching size class when one is available, and returns
// its RecordID.
func (f *File) Allocate(size int) (RecordID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allocateLocked(size)
}

func (f *File) allocateLocked(size int) (RecordID, error) {
	if f.closed {
		return NoRecord, ErrClosed
	}
	class, err := classForSize(size)
	if err != nil {
		return NoRecord, err
	}
	if off, ok := f.popFreeLocked(class); ok {
		return NewRecordID(class, off), nil
	}
	slot := int64(slotSize(class))
	offset := f.mf.Size()
	if err := f.mf.Grow(offset + slot); err != nil {
		return NoRecord, err
	}
	return NewRecordID(class, offset), nil
}

// Write overwrites the full contents of id's slot with data, zero-padding
// any unused tail. It fails with ErrTooLargeNode if data does not fit in
// id's size class.
func (f *File) Write(id RecordID, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked(id, data)
}

func (f *File) writeLocked(id RecordID, data []byte) error {
	if f.closed {
		return ErrClosed
	}
	slot := int(slotSize(id.Class()))
	if len(data) > slot {
		return ErrTooLargeNode
	}
	off := id.Offset()
	b := f.mf.Bytes()
	if off < 0 || off+int64(slot) > int64(len(b)) {
		return ErrCorrupt
	}
	dst := b[off : off+int64(slot)]
	clear(dst)
	copy(dst, data)
	f.mf.MarkDirty(int(off), slot)
	return nil
}

// Read returns a freshly allocated copy of the first n bytes of id's slot.
func (f *File) Read(id RecordID, n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked(id, n)
}

func (f *File) readLocked(id RecordID, n int) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	slot := int(slotSize(id.Class()))
	if n > slot {
		return nil, ErrCorrupt
	}
	off := id.Offset()
	b := f.mf.Bytes()
	if off < 0 || off+int64(slot) > int64(len(b)) {
		return nil, ErrCorrupt
	}
	out := make([]byte, n)
	copy(out, b[off:off+int64(n)])
	return out, nil
}

// Resize writes newData to id's existing slot if it still fits, or
// allocates a new, larger slot, writes newData there, frees id, and returns
// the new RecordID. Callers must update any reference to id with the
// returned value.
func (f *File) Resize(id RecordID, newData []byte) (RecordID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return NoRecord, ErrClosed
	}
	if len(newData) <= int(slotSize(id.Class())) {
		if err := f.writeLocked(id, newData); err != nil {
			return NoRecord, err
		}
		return id, nil
	}
	newID, err := f.allocateLocked(len(newData))
	if err != nil {
		return NoRecord, err
	}
	if err := f.writeLocked(newID, newData); err != nil {
		return NoRecord, err
	}
	if err := f.freeLocked(id); err != nil {
		return NoRecord, err
	}
	return newID, nil
}

// Free returns id's slot to its size class's free list. Freeing NoRecord is
// a no-op.
func (f *File) Free(id RecordID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.freeLocked(id)
}

func (f *File) freeLocked(id RecordID) error {
	if f.closed {
		return ErrClosed
	}
	if id.IsNone() {
		return nil
	}
	return f.pushFreeLocked(id.Class(), id.Offset())
}

// AllocateNextNodeID returns the next node_id in the volume's monotonic
// sequence, persisting the counter before returning it.
func (f *File) AllocateNextNodeID() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.hdr.nextNodeID
	f.hdr.nextNodeID++
	f.persistHeaderLocked()
	return id
}

// RootNodeRecordID returns the record holding the volume's root node, or
// NoRecord if the volume is empty.
func (f *File) RootNodeRecordID() RecordID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hdr.rootNode
}

// SetRootNodeRecordID updates the volume's root node record.
func (f *File) SetRootNodeRecordID(id RecordID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hdr.rootNode = id
	f.persistHeaderLocked()
}

// BPlusTreeRecordID returns the TTL B+-tree's meta record, or NoRecord if no
// TTL tree has been created in this volume yet.
func (f *File) BPlusTreeRecordID() RecordID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hdr.ttlTree
}

// SetBPlusTreeRecordID updates the volume's TTL B+-tree meta record.
func (f *File) SetBPlusTreeRecordID(id RecordID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hdr.ttlTree = id
	f.persistHeaderLocked()
}

func (f *File) persistHeaderLocked() {
	copy(f.mf.Bytes()[:ControlBlockSize], f.hdr.encode())
	f.mf.MarkDirty(0, ControlBlockSize)
}

func (f *File) readFreeBlockLocked(offset int64) *freeRecordsBlock {
	b := f.mf.Bytes()[offset : offset+ControlBlockSize]
	blk, err := decodeFreeRecordsBlock(b)
	if err != nil {
		panic(fmt.Sprintf("volume: corrupt free-records block at offset %d", offset))
	}
	return blk
}

func (f *File) writeFreeBlockLocked(offset int64, blk *freeRecordsBlock) {
	copy(f.mf.Bytes()[offset:offset+ControlBlockSize], blk.encode())
	f.mf.MarkDirty(int(offset), ControlBlockSize)
}

// popFreeLocked removes and returns one free slot offset for class, or
// ok=false if that class's free chain is empty. A block that becomes empty
// after the pop is unlinked from the class chain and moved onto the
// available-empty chain for reuse as a control block of any kind.
func (f *File) popFreeLocked(class int) (int64, bool) {
	head := f.hdr.freeListHeads[class]
	if head.IsNone() {
		return 0, false
	}
	blockOff := head.Offset()
	blk := f.readFreeBlockLocked(blockOff)
	off, ok := blk.pop()
	if !ok {
		return 0, false
	}
	if blk.isEmpty() {
		f.hdr.freeListHeads[class] = blk.next
		f.linkAvailEmptyLocked(blockOff, blk)
	} else {
		f.writeFreeBlockLocked(blockOff, blk)
	}
	f.persistHeaderLocked()
	return off, true
}

// pushFreeLocked returns offset to class's free chain, prepending a fresh
// control block when the current head is full or absent.
func (f *File) pushFreeLocked(class int, offset int64) error {
	head := f.hdr.freeListHeads[class]
	if !head.IsNone() {
		blockOff := head.Offset()
		blk := f.readFreeBlockLocked(blockOff)
		if blk.push(offset) {
			f.writeFreeBlockLocked(blockOff, blk)
			return nil
		}
	}
	blockOff, err := f.acquireControlBlockLocked()
	if err != nil {
		return err
	}
	blk := newFreeRecordsBlock()
	blk.next = head
	blk.push(offset)
	f.writeFreeBlockLocked(blockOff, blk)
	f.hdr.freeListHeads[class] = NewRecordID(0, blockOff)
	f.persistHeaderLocked()
	return nil
}

// linkAvailEmptyLocked prepends the already-empty block at blockOff onto the
// available-empty chain, repurposing its next pointer.
func (f *File) linkAvailEmptyLocked(blockOff int64, blk *freeRecordsBlock) {
	blk.next = f.hdr.availEmpty
	f.writeFreeBlockLocked(blockOff, blk)
	f.hdr.availEmpty = NewRecordID(0, blockOff)
}

// acquireControlBlockLocked returns the offset of a ControlBlockSize-byte
// page ready to be overwritten as a new control block, reusing the
// available-empty chain before extending the file.
func (f *File) acquireControlBlockLocked() (int64, error) {
	if !f.hdr.availEmpty.IsNone() {
		blockOff := f.hdr.availEmpty.Offset()
		blk := f.readFreeBlockLocked(blockOff)
		f.hdr.availEmpty = blk.next
		return blockOff, nil
	}
	offset := f.mf.Size()
	if err := f.mf.Grow(offset + ControlBlockSize); err != nil {
		return 0, err
	}
	return offset, nil
}

// Stats summarizes a volume's free-space bookkeeping for diagnostics.
type Stats struct {
	FileSize           int64
	FreeBlocksPerClass [sizesCount]int
	FreeSlotsPerClass  [sizesCount]int
}

// Stats walks every free-list chain and reports its depth and fill. It is
// not a hot path operation.
func (f *File) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := Stats{FileSize: f.mf.Size()}
	for class, head := range f.hdr.freeListHeads {
		cur := head
		for !cur.IsNone() {
			blk := f.readFreeBlockLocked(cur.Offset())
			st.FreeBlocksPerClass[class]++
			st.FreeSlotsPerClass[class] += blk.fill()
			cur = blk.next
		}
	}
	return st
}
