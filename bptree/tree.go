package bptree

import (
	"github.com/joshuapare/nodestore/volume"
)

// Tree is a handle onto one B+-tree instance backed by vol. MetaID is the
// record a caller must persist (e.g. in a volume.File header slot) to
// reopen the same tree later.
type Tree[V any] struct {
	vol    *volume.File
	codec  Codec[V]
	metaID volume.RecordID
	meta   *metaRecord
}

// MetaID returns the record holding this tree's meta record.
func (t *Tree[V]) MetaID() volume.RecordID {
	return t.metaID
}

// Create initializes a new, empty tree: one internal root pointing at one
// empty leaf (spec.md §4.3 "initial state").
func Create[V any](vol *volume.File, codec Codec[V]) (*Tree[V], error) {
	leaf := &leafNode[V]{parent: volume.NoRecord, next: volume.NoRecord, prev: volume.NoRecord}
	leafID, err := vol.Allocate(len(encodeLeaf(leaf, codec)))
	if err != nil {
		return nil, err
	}
	if err := vol.Write(leafID, encodeLeaf(leaf, codec)); err != nil {
		return nil, err
	}

	root := &internalNode{
		parent: volume.NoRecord,
		next:   volume.NoRecord,
		prev:   volume.NoRecord,
		entries: []internalEntry{
			{key: minKey, child: leafID},
		},
	}
	rootBytes := encodeInternal(root)
	rootID, err := vol.Allocate(len(rootBytes))
	if err != nil {
		return nil, err
	}
	if err := vol.Write(rootID, rootBytes); err != nil {
		return nil, err
	}

	leaf.parent = rootID
	if err := vol.Write(leafID, encodeLeaf(leaf, codec)); err != nil {
		return nil, err
	}

	meta := &metaRecord{order: order, internalCount: 1, leafCount: 1, height: 1, root: rootID}
	metaBytes := encodeMeta(meta)
	metaID, err := vol.Allocate(len(metaBytes))
	if err != nil {
		return nil, err
	}
	if err := vol.Write(metaID, metaBytes); err != nil {
		return nil, err
	}

	return &Tree[V]{vol: vol, codec: codec, metaID: metaID, meta: meta}, nil
}

// Open loads a previously created tree from its meta record.
func Open[V any](vol *volume.File, metaID volume.RecordID, codec Codec[V]) (*Tree[V], error) {
	b, err := readFull(vol, metaID)
	if err != nil {
		return nil, err
	}
	meta, err := decodeMeta(b)
	if err != nil {
		return nil, err
	}
	return &Tree[V]{vol: vol, codec: codec, metaID: metaID, meta: meta}, nil
}

// readFull reads an entire record slot; every shape this package persists
// is self-framing (length-prefixed entries, a leading tag byte), so readers
// never need to know the exact payload length ahead of time.
func readFull(vol *volume.File, id volume.RecordID) ([]byte, error) {
	return vol.Read(id, volume.SlotSizeFor(id))
}

func (t *Tree[V]) loadLeaf(id volume.RecordID) (*leafNode[V], error) {
	b, err := readFull(t.vol, id)
	if err != nil {
		return nil, err
	}
	return decodeLeaf(b, t.codec)
}

func (t *Tree[V]) loadInternal(id volume.RecordID) (*internalNode, error) {
	b, err := readFull(t.vol, id)
	if err != nil {
		return nil, err
	}
	return decodeInternal(b)
}

func (t *Tree[V]) saveMeta() error {
	id, err := t.vol.Resize(t.metaID, encodeMeta(t.meta))
	if err != nil {
		return err
	}
	t.metaID = id
	return nil
}

// Search looks up key and reports whether it was found.
func (t *Tree[V]) Search(key Key) (V, bool, error) {
	var zero V
	leafID, err := t.descendToLeaf(key)
	if err != nil {
		return zero, false, err
	}
	leaf, err := t.loadLeaf(leafID)
	if err != nil {
		return zero, false, err
	}
	for _, e := range leaf.entries {
		if e.key == key {
			return e.value, true, nil
		}
	}
	return zero, false, nil
}

// GetFirst returns the smallest key in the tree, if any.
func (t *Tree[V]) GetFirst() (Key, V, bool, error) {
	var zeroKey Key
	var zeroVal V
	id := t.meta.root
	for {
		b, err := readFull(t.vol, id)
		if err != nil {
			return zeroKey, zeroVal, false, err
		}
		tag, err := peekTag(b)
		if err != nil {
			return zeroKey, zeroVal, false, err
		}
		if tag == tagLeaf {
			leaf, err := decodeLeaf[V](b, t.codec)
			if err != nil {
				return zeroKey, zeroVal, false, err
			}
			if len(leaf.entries) == 0 {
				return zeroKey, zeroVal, false, nil
			}
			e := leaf.entries[0]
			return e.key, e.value, true, nil
		}
		internal, err := decodeInternal(b)
		if err != nil {
			return zeroKey, zeroVal, false, err
		}
		if len(internal.entries) == 0 {
			return zeroKey, zeroVal, false, nil
		}
		id = internal.entries[0].child
	}
}

// descendToLeaf walks from the root to the leaf that would hold key.
func (t *Tree[V]) descendToLeaf(key Key) (volume.RecordID, error) {
	id := t.meta.root
	for i := 0; i < t.meta.height; i++ {
		internal, err := t.loadInternal(id)
		if err != nil {
			return volume.NoRecord, err
		}
		id = pickChild(internal, key)
	}
	return id, nil
}

// pickChild returns the child of an internal node whose key is the largest
// one not exceeding the search key (entries are sorted ascending).
func pickChild(n *internalNode, key Key) volume.RecordID {
	return n.entries[pickChildIndex(n, key)].child
}
