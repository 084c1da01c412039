package volume

import "github.com/joshuapare/nodestore/internal/buf"

// The first control block in every volume file is the header block: fixed
// offsets, no framing. Everything past headerUsedBytes is reserved and must
// read as zero in a freshly created file.
const (
	magicOff         = 0
	versionOff       = 4
	freeListHeadsOff = 8                                  // sizesCount * 8 bytes
	availEmptyOff    = freeListHeadsOff + sizesCount*8     // 200
	rootNodeOff      = availEmptyOff + 8                   // 208
	ttlTreeOff       = rootNodeOff + 8                      // 216
	nextNodeIDOff    = ttlTreeOff + 8                       // 224
	headerUsedBytes  = nextNodeIDOff + 8                    // 232
)

// Magic identifies a file produced by this package.
var Magic = [4]byte{'H', 'K', 'E', 'Y'}

// Version is the only header version this package writes or accepts.
const Version = uint32(1)

// header is an in-memory mirror of the header control block (byte 0 of the
// volume file). It is read once on Open and flushed back on every mutation
// that touches one of its fields.
type header struct {
	freeListHeads [sizesCount]RecordID // head of each size class's free chain
	availEmpty    RecordID             // head of the reusable-empty-block chain
	rootNode      RecordID
	ttlTree       RecordID
	nextNodeID    uint64
}

func newHeader() *header {
	h := &header{
		availEmpty: NoRecord,
		rootNode:   NoRecord,
		ttlTree:    NoRecord,
		nextNodeID: 1,
	}
	for i := range h.freeListHeads {
		h.freeListHeads[i] = NoRecord
	}
	return h
}

// encode renders h into a freshly allocated ControlBlockSize-byte block,
// magic and version included.
func (h *header) encode() []byte {
	b := make([]byte, ControlBlockSize)
	copy(b[magicOff:magicOff+4], Magic[:])
	buf.PutU32LE(b[versionOff:versionOff+4], Version)
	for i, id := range h.freeListHeads {
		off := freeListHeadsOff + i*8
		buf.PutU64LE(b[off:off+8], uint64(id))
	}
	buf.PutU64LE(b[availEmptyOff:availEmptyOff+8], uint64(h.availEmpty))
	buf.PutU64LE(b[rootNodeOff:rootNodeOff+8], uint64(h.rootNode))
	buf.PutU64LE(b[ttlTreeOff:ttlTreeOff+8], uint64(h.ttlTree))
	buf.PutU64LE(b[nextNodeIDOff:nextNodeIDOff+8], h.nextNodeID)
	return b
}

// decodeHeader parses the first ControlBlockSize bytes of a volume file.
func decodeHeader(b []byte) (*header, error) {
	if len(b) < ControlBlockSize {
		return nil, ErrCorrupt
	}
	if string(b[magicOff:magicOff+4]) != string(Magic[:]) {
		return nil, ErrBadMagic
	}
	if v := buf.U32LE(b[versionOff : versionOff+4]); v != Version {
		return nil, ErrUnsupportedVersion
	}
	h := &header{}
	for i := range h.freeListHeads {
		off := freeListHeadsOff + i*8
		h.freeListHeads[i] = RecordID(buf.U64LE(b[off : off+8]))
	}
	h.availEmpty = RecordID(buf.U64LE(b[availEmptyOff : availEmptyOff+8]))
	h.rootNode = RecordID(buf.U64LE(b[rootNodeOff : rootNodeOff+8]))
	h.ttlTree = RecordID(buf.U64LE(b[ttlTreeOff : ttlTreeOff+8]))
	h.nextNodeID = buf.U64LE(b[nextNodeIDOff : nextNodeIDOff+8])
	return h, nil
}
