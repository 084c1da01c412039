// Package bptree implements a variable-size-value B+-tree whose nodes are
// themselves records inside a volume.File slab allocator (spec.md §4.3). It
// is used by ttlmgr to keep deletions ordered by deadline, but the value
// type is a parameter: any caller that can encode/decode its value to bytes
// can keep a sorted index inside a volume.
package bptree

import "errors"

// ErrNotFound is returned by Remove when the key does not exist.
var ErrNotFound = errors.New("bptree: key not found")

// ErrDuplicateKey is returned by Insert when the key already exists.
var ErrDuplicateKey = errors.New("bptree: duplicate key")

// ErrCorrupt is returned when a decoded node fails a structural invariant.
var ErrCorrupt = errors.New("bptree: corrupt tree structure")

// Key orders entries first by Deadline, then by NodeID, matching the TTL
// tree's (deadline, node_id) composite key (spec.md §4.5).
type Key struct {
	Deadline int64
	NodeID   uint64
}

// Less reports whether a sorts strictly before b.
func (a Key) Less(b Key) bool {
	if a.Deadline != b.Deadline {
		return a.Deadline < b.Deadline
	}
	return a.NodeID < b.NodeID
}

// minKey is smaller than every real key and only ever appears as the
// separator on the first entry of an internal root: the one-child root
// created by Create and every new root Insert builds when the root splits.
// It accepts any search key.
var minKey = Key{Deadline: -1 << 63, NodeID: 0}
