package bptree

import (
	"github.com/joshuapare/nodestore/serialize"
	"github.com/joshuapare/nodestore/volume"
)

// order is the fixed fan-out of every internal and leaf node (spec.md §4.3:
// BP_ORDER ≈ 100). A node holds n ≤ order entries, and its record encodes
// only those n entries.
const order = 100

// Codec tells a Tree how to turn its value type to and from bytes. Keys are
// fixed-width and need no codec; values are caller-defined.
type Codec[V any] struct {
	Encode func(V) []byte
	Decode func([]byte) (V, error)
}

type leafEntry[V any] struct {
	key   Key
	value V
}

// leafNode is a linked-list member at the bottom level: parent points up,
// next/prev chain leaves in key order across the whole tree (spec.md §4.3
// invariants).
type leafNode[V any] struct {
	parent  volume.RecordID
	next    volume.RecordID
	prev    volume.RecordID
	entries []leafEntry[V]
}

type internalEntry struct {
	key   Key
	child volume.RecordID
}

// internalNode pairs each child pointer with the smallest key reachable
// through it; descent picks the last entry whose key is <= the search key.
type internalNode struct {
	parent  volume.RecordID
	next    volume.RecordID
	prev    volume.RecordID
	entries []internalEntry
}

// metaRecord is the tree's single fixed anchor record; its RecordID is what
// callers (ttlmgr, volume.File's header) hold onto across tree mutations.
type metaRecord struct {
	order          int
	internalCount  int
	leafCount      int
	height         int
	root           volume.RecordID
}

// Node records carry a leading tag byte so a reader descending the tree
// without prior knowledge of the level (GetFirst, diagnostics) can tell a
// leaf record from an internal one.
const (
	tagLeaf     = 0
	tagInternal = 1
)

// peekTag reports whether the record at b is a leaf or internal node,
// without fully decoding it.
func peekTag(b []byte) (int, error) {
	return serialize.NewReader(b).ReadTag()
}

func encodeLeaf[V any](n *leafNode[V], codec Codec[V]) []byte {
	w := serialize.NewWriter()
	w.WriteTag(tagLeaf)
	w.WriteU64(uint64(n.parent))
	w.WriteU64(uint64(n.next))
	w.WriteU64(uint64(n.prev))
	serialize.WriteSlice(w, n.entries, func(w *serialize.Writer, e leafEntry[V]) {
		w.WriteI64(e.key.Deadline)
		w.WriteU64(e.key.NodeID)
		vb := codec.Encode(e.value)
		w.WriteLen(len(vb))
		w.WriteRaw(vb)
	})
	return w.Bytes()
}

func decodeLeaf[V any](b []byte, codec Codec[V]) (*leafNode[V], error) {
	r := serialize.NewReader(b)
	tag, err := r.ReadTag()
	if err != nil {
		return nil, err
	}
	if tag != tagLeaf {
		return nil, ErrCorrupt
	}
	parent, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	next, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	prev, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	entries, err := serialize.ReadSlice(r, func(r *serialize.Reader) (leafEntry[V], error) {
		var e leafEntry[V]
		deadline, err := r.ReadI64()
		if err != nil {
			return e, err
		}
		nodeID, err := r.ReadU64()
		if err != nil {
			return e, err
		}
		n, err := r.ReadLen()
		if err != nil {
			return e, err
		}
		raw, err := r.ReadRaw(n)
		if err != nil {
			return e, err
		}
		val, err := codec.Decode(raw)
		if err != nil {
			return e, err
		}
		e.key = Key{Deadline: deadline, NodeID: nodeID}
		e.value = val
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return &leafNode[V]{
		parent:  volume.RecordID(parent),
		next:    volume.RecordID(next),
		prev:    volume.RecordID(prev),
		entries: entries,
	}, nil
}

func encodeInternal(n *internalNode) []byte {
	w := serialize.NewWriter()
	w.WriteTag(tagInternal)
	w.WriteU64(uint64(n.parent))
	w.WriteU64(uint64(n.next))
	w.WriteU64(uint64(n.prev))
	serialize.WriteSlice(w, n.entries, func(w *serialize.Writer, e internalEntry) {
		w.WriteI64(e.key.Deadline)
		w.WriteU64(e.key.NodeID)
		w.WriteU64(uint64(e.child))
	})
	return w.Bytes()
}

func decodeInternal(b []byte) (*internalNode, error) {
	r := serialize.NewReader(b)
	tag, err := r.ReadTag()
	if err != nil {
		return nil, err
	}
	if tag != tagInternal {
		return nil, ErrCorrupt
	}
	parent, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	next, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	prev, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	entries, err := serialize.ReadSlice(r, func(r *serialize.Reader) (internalEntry, error) {
		var e internalEntry
		deadline, err := r.ReadI64()
		if err != nil {
			return e, err
		}
		nodeID, err := r.ReadU64()
		if err != nil {
			return e, err
		}
		child, err := r.ReadU64()
		if err != nil {
			return e, err
		}
		e.key = Key{Deadline: deadline, NodeID: nodeID}
		e.child = volume.RecordID(child)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return &internalNode{
		parent:  volume.RecordID(parent),
		next:    volume.RecordID(next),
		prev:    volume.RecordID(prev),
		entries: entries,
	}, nil
}

func encodeMeta(m *metaRecord) []byte {
	w := serialize.NewWriter()
	w.WriteLen(m.order)
	w.WriteLen(m.internalCount)
	w.WriteLen(m.leafCount)
	w.WriteLen(m.height)
	w.WriteU64(uint64(m.root))
	return w.Bytes()
}

func decodeMeta(b []byte) (*metaRecord, error) {
	r := serialize.NewReader(b)
	ord, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	internalCount, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	leafCount, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	height, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	root, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	return &metaRecord{
		order:         ord,
		internalCount: internalCount,
		leafCount:     leafCount,
		height:        height,
		root:          volume.RecordID(root),
	}, nil
}
