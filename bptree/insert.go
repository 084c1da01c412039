package bptree

import "github.com/joshuapare/nodestore/volume"

type splitInfo struct {
	key   Key
	right volume.RecordID
}

type insertResult struct {
	newID volume.RecordID
	split *splitInfo
}

// Insert adds key→value, splitting full nodes bottom-up on the way back from
// the leaf and growing the
// tree's height when the root itself splits (spec.md §4.3).
func (t *Tree[V]) Insert(key Key, value V) error {
	res, err := t.insertAt(t.meta.root, t.meta.height, key, value)
	if err != nil {
		return err
	}

	changed := res.newID != t.meta.root
	if changed {
		t.meta.root = res.newID
	}

	if res.split != nil {
		newRoot := &internalNode{
			parent: volume.NoRecord,
			next:   volume.NoRecord,
			prev:   volume.NoRecord,
			entries: []internalEntry{
				{key: minKey, child: res.newID},
				{key: res.split.key, child: res.split.right},
			},
		}
		bytes := encodeInternal(newRoot)
		newRootID, err := t.vol.Allocate(len(bytes))
		if err != nil {
			return err
		}
		if err := t.vol.Write(newRootID, bytes); err != nil {
			return err
		}
		if err := t.setParent(res.newID, t.meta.height, newRootID); err != nil {
			return err
		}
		if err := t.setParent(res.split.right, t.meta.height, newRootID); err != nil {
			return err
		}
		t.meta.root = newRootID
		t.meta.height++
		t.meta.internalCount++
		changed = true
	}

	if changed {
		return t.saveMeta()
	}
	return nil
}

func (t *Tree[V]) insertAt(id volume.RecordID, depth int, key Key, value V) (insertResult, error) {
	if depth == 0 {
		return t.insertLeaf(id, key, value)
	}

	internal, err := t.loadInternal(id)
	if err != nil {
		return insertResult{}, err
	}
	idx := pickChildIndex(internal, key)
	childID := internal.entries[idx].child
	childDepth := depth - 1

	childRes, err := t.insertAt(childID, childDepth, key, value)
	if err != nil {
		return insertResult{}, err
	}

	mutated := false
	if childRes.newID != childID {
		internal.entries[idx].child = childRes.newID
		mutated = true
	}
	if childRes.split != nil {
		pos := idx + 1
		internal.entries = append(internal.entries, internalEntry{})
		copy(internal.entries[pos+1:], internal.entries[pos:])
		internal.entries[pos] = internalEntry{key: childRes.split.key, child: childRes.split.right}
		mutated = true
	}

	if !mutated {
		return insertResult{newID: id}, nil
	}

	if len(internal.entries) <= order {
		newID, err := t.vol.Resize(id, encodeInternal(internal))
		if err != nil {
			return insertResult{}, err
		}
		if newID != id {
			if err := t.patchInternalNeighbors(internal, id, newID); err != nil {
				return insertResult{}, err
			}
			if err := t.reparentChildren(internal, childDepth, newID); err != nil {
				return insertResult{}, err
			}
		}
		return insertResult{newID: newID}, nil
	}

	return t.splitInternal(id, internal, childDepth)
}

func (t *Tree[V]) insertLeaf(id volume.RecordID, key Key, value V) (insertResult, error) {
	leaf, err := t.loadLeaf(id)
	if err != nil {
		return insertResult{}, err
	}
	pos, found := leafSearchPos(leaf, key)
	if found {
		return insertResult{}, ErrDuplicateKey
	}
	leaf.entries = append(leaf.entries, leafEntry[V]{})
	copy(leaf.entries[pos+1:], leaf.entries[pos:])
	leaf.entries[pos] = leafEntry[V]{key: key, value: value}

	if len(leaf.entries) <= order {
		newID, err := t.vol.Resize(id, encodeLeaf(leaf, t.codec))
		if err != nil {
			return insertResult{}, err
		}
		if newID != id {
			if err := t.patchLeafNeighbors(leaf, id, newID); err != nil {
				return insertResult{}, err
			}
		}
		return insertResult{newID: newID}, nil
	}

	return t.splitLeaf(id, leaf)
}

func (t *Tree[V]) splitLeaf(id volume.RecordID, leaf *leafNode[V]) (insertResult, error) {
	mid := len(leaf.entries) / 2
	leftEntries := append([]leafEntry[V]{}, leaf.entries[:mid]...)
	rightEntries := append([]leafEntry[V]{}, leaf.entries[mid:]...)

	rightNode := &leafNode[V]{parent: leaf.parent, next: leaf.next, prev: volume.NoRecord, entries: rightEntries}
	rightBytes := encodeLeaf(rightNode, t.codec)
	rightID, err := t.vol.Allocate(len(rightBytes))
	if err != nil {
		return insertResult{}, err
	}
	if err := t.vol.Write(rightID, rightBytes); err != nil {
		return insertResult{}, err
	}

	leftNode := &leafNode[V]{parent: leaf.parent, next: rightID, prev: leaf.prev, entries: leftEntries}
	newLeftID, err := t.vol.Resize(id, encodeLeaf(leftNode, t.codec))
	if err != nil {
		return insertResult{}, err
	}

	rightNode.prev = newLeftID
	newRightID, err := t.vol.Resize(rightID, encodeLeaf(rightNode, t.codec))
	if err != nil {
		return insertResult{}, err
	}

	if leaf.next != volume.NoRecord {
		nextLeaf, err := t.loadLeaf(leaf.next)
		if err != nil {
			return insertResult{}, err
		}
		nextLeaf.prev = newRightID
		if _, err := t.vol.Resize(leaf.next, encodeLeaf(nextLeaf, t.codec)); err != nil {
			return insertResult{}, err
		}
	}
	if leaf.prev != volume.NoRecord && newLeftID != id {
		prevLeaf, err := t.loadLeaf(leaf.prev)
		if err != nil {
			return insertResult{}, err
		}
		prevLeaf.next = newLeftID
		if _, err := t.vol.Resize(leaf.prev, encodeLeaf(prevLeaf, t.codec)); err != nil {
			return insertResult{}, err
		}
	}

	t.meta.leafCount++
	return insertResult{newID: newLeftID, split: &splitInfo{key: rightEntries[0].key, right: newRightID}}, nil
}

func (t *Tree[V]) splitInternal(id volume.RecordID, internal *internalNode, childDepth int) (insertResult, error) {
	mid := len(internal.entries) / 2
	leftEntries := append([]internalEntry{}, internal.entries[:mid]...)
	rightEntries := append([]internalEntry{}, internal.entries[mid:]...)

	rightNode := &internalNode{parent: internal.parent, next: internal.next, prev: volume.NoRecord, entries: rightEntries}
	rightBytes := encodeInternal(rightNode)
	rightID, err := t.vol.Allocate(len(rightBytes))
	if err != nil {
		return insertResult{}, err
	}
	if err := t.vol.Write(rightID, rightBytes); err != nil {
		return insertResult{}, err
	}

	leftNode := &internalNode{parent: internal.parent, next: rightID, prev: internal.prev, entries: leftEntries}
	newLeftID, err := t.vol.Resize(id, encodeInternal(leftNode))
	if err != nil {
		return insertResult{}, err
	}

	rightNode.prev = newLeftID
	newRightID, err := t.vol.Resize(rightID, encodeInternal(rightNode))
	if err != nil {
		return insertResult{}, err
	}

	if internal.next != volume.NoRecord {
		nextNode, err := t.loadInternal(internal.next)
		if err != nil {
			return insertResult{}, err
		}
		nextNode.prev = newRightID
		if _, err := t.vol.Resize(internal.next, encodeInternal(nextNode)); err != nil {
			return insertResult{}, err
		}
	}
	if internal.prev != volume.NoRecord && newLeftID != id {
		prevNode, err := t.loadInternal(internal.prev)
		if err != nil {
			return insertResult{}, err
		}
		prevNode.next = newLeftID
		if _, err := t.vol.Resize(internal.prev, encodeInternal(prevNode)); err != nil {
			return insertResult{}, err
		}
	}

	for _, e := range leftEntries {
		if err := t.setParent(e.child, childDepth, newLeftID); err != nil {
			return insertResult{}, err
		}
	}
	for _, e := range rightEntries {
		if err := t.setParent(e.child, childDepth, newRightID); err != nil {
			return insertResult{}, err
		}
	}

	t.meta.internalCount++
	return insertResult{newID: newLeftID, split: &splitInfo{key: rightEntries[0].key, right: newRightID}}, nil
}

func (t *Tree[V]) setParent(id volume.RecordID, depth int, parent volume.RecordID) error {
	if depth == 0 {
		leaf, err := t.loadLeaf(id)
		if err != nil {
			return err
		}
		leaf.parent = parent
		_, err = t.vol.Resize(id, encodeLeaf(leaf, t.codec))
		return err
	}
	internal, err := t.loadInternal(id)
	if err != nil {
		return err
	}
	internal.parent = parent
	_, err = t.vol.Resize(id, encodeInternal(internal))
	return err
}

func (t *Tree[V]) reparentChildren(internal *internalNode, childDepth int, newParent volume.RecordID) error {
	for _, e := range internal.entries {
		if err := t.setParent(e.child, childDepth, newParent); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree[V]) patchLeafNeighbors(leaf *leafNode[V], oldID, newID volume.RecordID) error {
	_ = oldID
	if leaf.prev != volume.NoRecord {
		prev, err := t.loadLeaf(leaf.prev)
		if err != nil {
			return err
		}
		prev.next = newID
		if _, err := t.vol.Resize(leaf.prev, encodeLeaf(prev, t.codec)); err != nil {
			return err
		}
	}
	if leaf.next != volume.NoRecord {
		next, err := t.loadLeaf(leaf.next)
		if err != nil {
			return err
		}
		next.prev = newID
		if _, err := t.vol.Resize(leaf.next, encodeLeaf(next, t.codec)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree[V]) patchInternalNeighbors(n *internalNode, oldID, newID volume.RecordID) error {
	_ = oldID
	if n.prev != volume.NoRecord {
		prev, err := t.loadInternal(n.prev)
		if err != nil {
			return err
		}
		prev.next = newID
		if _, err := t.vol.Resize(n.prev, encodeInternal(prev)); err != nil {
			return err
		}
	}
	if n.next != volume.NoRecord {
		next, err := t.loadInternal(n.next)
		if err != nil {
			return err
		}
		next.prev = newID
		if _, err := t.vol.Resize(n.next, encodeInternal(next)); err != nil {
			return err
		}
	}
	return nil
}

func pickChildIndex(n *internalNode, key Key) int {
	idx := 0
	for i, e := range n.entries {
		if e.key.Less(key) || e.key == key {
			idx = i
		} else {
			break
		}
	}
	return idx
}

func leafSearchPos[V any](leaf *leafNode[V], key Key) (int, bool) {
	for i, e := range leaf.entries {
		if e.key == key {
			return i, true
		}
		if key.Less(e.key) {
			return i, false
		}
	}
	return len(leaf.entries), false
}
