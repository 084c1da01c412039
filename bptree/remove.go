package bptree

import "github.com/joshuapare/nodestore/volume"

type removeResult struct {
	newID     volume.RecordID
	underflow bool
}

// Remove deletes key, borrowing from or merging with a sibling when a node
// falls below half occupancy and collapsing the root when it shrinks to a
// single child (spec.md §4.3). A root whose children are leaves (height 1)
// is kept even with a single child.
func (t *Tree[V]) Remove(key Key) error {
	res, err := t.removeAt(t.meta.root, t.meta.height, key)
	if err != nil {
		return err
	}

	changed := res.newID != t.meta.root
	if changed {
		t.meta.root = res.newID
	}

	if t.meta.height > 1 {
		root, err := t.loadInternal(t.meta.root)
		if err != nil {
			return err
		}
		if len(root.entries) == 1 {
			onlyChild := root.entries[0].child
			onlyChildDepth := t.meta.height - 1
			oldRootID := t.meta.root

			t.meta.root = onlyChild
			t.meta.height--
			t.meta.internalCount--

			if err := t.setParent(onlyChild, onlyChildDepth, volume.NoRecord); err != nil {
				return err
			}
			if err := t.vol.Free(oldRootID); err != nil {
				return err
			}
			changed = true
		}
	}

	if changed {
		return t.saveMeta()
	}
	return nil
}

func (t *Tree[V]) removeAt(id volume.RecordID, depth int, key Key) (removeResult, error) {
	if depth == 0 {
		return t.removeLeaf(id, key)
	}

	internal, err := t.loadInternal(id)
	if err != nil {
		return removeResult{}, err
	}
	idx := pickChildIndex(internal, key)
	childID := internal.entries[idx].child
	childDepth := depth - 1

	childRes, err := t.removeAt(childID, childDepth, key)
	if err != nil {
		return removeResult{}, err
	}
	if childRes.newID != childID {
		internal.entries[idx].child = childRes.newID
	}
	if childRes.underflow {
		if err := t.rebalanceChild(internal, idx, childDepth); err != nil {
			return removeResult{}, err
		}
	}

	newID, err := t.vol.Resize(id, encodeInternal(internal))
	if err != nil {
		return removeResult{}, err
	}
	if newID != id {
		if err := t.patchInternalNeighbors(internal, id, newID); err != nil {
			return removeResult{}, err
		}
		if err := t.reparentChildren(internal, childDepth, newID); err != nil {
			return removeResult{}, err
		}
	}

	underflow := len(internal.entries) < order/2 && internal.parent != volume.NoRecord
	return removeResult{newID: newID, underflow: underflow}, nil
}

func (t *Tree[V]) removeLeaf(id volume.RecordID, key Key) (removeResult, error) {
	leaf, err := t.loadLeaf(id)
	if err != nil {
		return removeResult{}, err
	}
	pos, found := leafSearchPos(leaf, key)
	if !found {
		return removeResult{}, ErrNotFound
	}
	leaf.entries = append(leaf.entries[:pos], leaf.entries[pos+1:]...)

	newID, err := t.vol.Resize(id, encodeLeaf(leaf, t.codec))
	if err != nil {
		return removeResult{}, err
	}
	if newID != id {
		if err := t.patchLeafNeighbors(leaf, id, newID); err != nil {
			return removeResult{}, err
		}
	}

	underflow := len(leaf.entries) < order/2 && t.meta.leafCount > 1
	return removeResult{newID: newID, underflow: underflow}, nil
}

func (t *Tree[V]) rebalanceChild(parent *internalNode, idx int, childDepth int) error {
	if childDepth == 0 {
		return t.rebalanceLeafChild(parent, idx)
	}
	return t.rebalanceInternalChild(parent, idx, childDepth)
}

func (t *Tree[V]) rebalanceLeafChild(parent *internalNode, idx int) error {
	childID := parent.entries[idx].child
	child, err := t.loadLeaf(childID)
	if err != nil {
		return err
	}

	if idx > 0 {
		leftID := parent.entries[idx-1].child
		left, err := t.loadLeaf(leftID)
		if err != nil {
			return err
		}
		if len(left.entries) > order/2 {
			borrowed := left.entries[len(left.entries)-1]
			left.entries = left.entries[:len(left.entries)-1]
			child.entries = append([]leafEntry[V]{borrowed}, child.entries...)

			newLeftID, err := t.vol.Resize(leftID, encodeLeaf(left, t.codec))
			if err != nil {
				return err
			}
			newChildID, err := t.vol.Resize(childID, encodeLeaf(child, t.codec))
			if err != nil {
				return err
			}
			parent.entries[idx-1].child = newLeftID
			parent.entries[idx].child = newChildID
			parent.entries[idx].key = borrowed.key
			if newLeftID != leftID {
				if err := t.patchLeafNeighbors(left, leftID, newLeftID); err != nil {
					return err
				}
			}
			if newChildID != childID {
				if err := t.patchLeafNeighbors(child, childID, newChildID); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if idx < len(parent.entries)-1 {
		rightID := parent.entries[idx+1].child
		right, err := t.loadLeaf(rightID)
		if err != nil {
			return err
		}
		if len(right.entries) > order/2 {
			borrowed := right.entries[0]
			right.entries = right.entries[1:]
			child.entries = append(child.entries, borrowed)

			newChildID, err := t.vol.Resize(childID, encodeLeaf(child, t.codec))
			if err != nil {
				return err
			}
			newRightID, err := t.vol.Resize(rightID, encodeLeaf(right, t.codec))
			if err != nil {
				return err
			}
			parent.entries[idx].child = newChildID
			parent.entries[idx+1].child = newRightID
			if len(right.entries) > 0 {
				parent.entries[idx+1].key = right.entries[0].key
			}
			if newChildID != childID {
				if err := t.patchLeafNeighbors(child, childID, newChildID); err != nil {
					return err
				}
			}
			if newRightID != rightID {
				if err := t.patchLeafNeighbors(right, rightID, newRightID); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if idx == len(parent.entries)-1 {
		return t.mergeLeaves(parent, idx-1, idx)
	}
	return t.mergeLeaves(parent, idx, idx+1)
}

func (t *Tree[V]) mergeLeaves(parent *internalNode, leftIdx, rightIdx int) error {
	leftID := parent.entries[leftIdx].child
	rightID := parent.entries[rightIdx].child
	left, err := t.loadLeaf(leftID)
	if err != nil {
		return err
	}
	right, err := t.loadLeaf(rightID)
	if err != nil {
		return err
	}

	left.entries = append(left.entries, right.entries...)
	left.next = right.next

	newLeftID, err := t.vol.Resize(leftID, encodeLeaf(left, t.codec))
	if err != nil {
		return err
	}

	if right.next != volume.NoRecord {
		nextLeaf, err := t.loadLeaf(right.next)
		if err != nil {
			return err
		}
		nextLeaf.prev = newLeftID
		if _, err := t.vol.Resize(right.next, encodeLeaf(nextLeaf, t.codec)); err != nil {
			return err
		}
	}
	if left.prev != volume.NoRecord && newLeftID != leftID {
		prevLeaf, err := t.loadLeaf(left.prev)
		if err != nil {
			return err
		}
		prevLeaf.next = newLeftID
		if _, err := t.vol.Resize(left.prev, encodeLeaf(prevLeaf, t.codec)); err != nil {
			return err
		}
	}
	if err := t.vol.Free(rightID); err != nil {
		return err
	}

	parent.entries[leftIdx].child = newLeftID
	parent.entries = append(parent.entries[:rightIdx], parent.entries[rightIdx+1:]...)

	t.meta.leafCount--
	return nil
}

func (t *Tree[V]) rebalanceInternalChild(parent *internalNode, idx int, childDepth int) error {
	childID := parent.entries[idx].child
	child, err := t.loadInternal(childID)
	if err != nil {
		return err
	}

	if idx > 0 {
		leftID := parent.entries[idx-1].child
		left, err := t.loadInternal(leftID)
		if err != nil {
			return err
		}
		if len(left.entries) > order/2 {
			borrowed := left.entries[len(left.entries)-1]
			left.entries = left.entries[:len(left.entries)-1]
			child.entries = append([]internalEntry{borrowed}, child.entries...)

			newLeftID, err := t.vol.Resize(leftID, encodeInternal(left))
			if err != nil {
				return err
			}
			newChildID, err := t.vol.Resize(childID, encodeInternal(child))
			if err != nil {
				return err
			}
			parent.entries[idx-1].child = newLeftID
			parent.entries[idx].child = newChildID
			parent.entries[idx].key = borrowed.key

			if newLeftID != leftID {
				if err := t.patchInternalNeighbors(left, leftID, newLeftID); err != nil {
					return err
				}
				if err := t.reparentChildren(left, childDepth-1, newLeftID); err != nil {
					return err
				}
			}
			if newChildID != childID {
				if err := t.patchInternalNeighbors(child, childID, newChildID); err != nil {
					return err
				}
			}
			if err := t.setParent(borrowed.child, childDepth-1, newChildID); err != nil {
				return err
			}
			return nil
		}
	}

	if idx < len(parent.entries)-1 {
		rightID := parent.entries[idx+1].child
		right, err := t.loadInternal(rightID)
		if err != nil {
			return err
		}
		if len(right.entries) > order/2 {
			borrowed := right.entries[0]
			right.entries = right.entries[1:]
			child.entries = append(child.entries, borrowed)

			newChildID, err := t.vol.Resize(childID, encodeInternal(child))
			if err != nil {
				return err
			}
			newRightID, err := t.vol.Resize(rightID, encodeInternal(right))
			if err != nil {
				return err
			}
			parent.entries[idx].child = newChildID
			parent.entries[idx+1].child = newRightID
			if len(right.entries) > 0 {
				parent.entries[idx+1].key = right.entries[0].key
			}
			if newChildID != childID {
				if err := t.patchInternalNeighbors(child, childID, newChildID); err != nil {
					return err
				}
			}
			if newRightID != rightID {
				if err := t.patchInternalNeighbors(right, rightID, newRightID); err != nil {
					return err
				}
				if err := t.reparentChildren(right, childDepth-1, newRightID); err != nil {
					return err
				}
			}
			if err := t.setParent(borrowed.child, childDepth-1, newChildID); err != nil {
				return err
			}
			return nil
		}
	}

	if idx == len(parent.entries)-1 {
		return t.mergeInternal(parent, idx-1, idx, childDepth)
	}
	return t.mergeInternal(parent, idx, idx+1, childDepth)
}

func (t *Tree[V]) mergeInternal(parent *internalNode, leftIdx, rightIdx int, childDepth int) error {
	leftID := parent.entries[leftIdx].child
	rightID := parent.entries[rightIdx].child
	left, err := t.loadInternal(leftID)
	if err != nil {
		return err
	}
	right, err := t.loadInternal(rightID)
	if err != nil {
		return err
	}

	left.entries = append(left.entries, right.entries...)
	left.next = right.next

	newLeftID, err := t.vol.Resize(leftID, encodeInternal(left))
	if err != nil {
		return err
	}

	if right.next != volume.NoRecord {
		nextNode, err := t.loadInternal(right.next)
		if err != nil {
			return err
		}
		nextNode.prev = newLeftID
		if _, err := t.vol.Resize(right.next, encodeInternal(nextNode)); err != nil {
			return err
		}
	}
	if left.prev != volume.NoRecord && newLeftID != leftID {
		prevNode, err := t.loadInternal(left.prev)
		if err != nil {
			return err
		}
		prevNode.next = newLeftID
		if _, err := t.vol.Resize(left.prev, encodeInternal(prevNode)); err != nil {
			return err
		}
	}
	if err := t.vol.Free(rightID); err != nil {
		return err
	}

	if err := t.reparentChildren(left, childDepth-1, newLeftID); err != nil {
		return err
	}

	parent.entries[leftIdx].child = newLeftID
	parent.entries = append(parent.entries[:rightIdx], parent.entries[rightIdx+1:]...)

	t.meta.internalCount--
	return nil
}
