// Package store assembles a volume file, its root node, and its TTL
// manager into one handle (VolumeImpl, spec.md §4.6), and routes dotted
// paths across a trie of mounted volumes (Storage, spec.md §4.7).
package store

import (
	"errors"

	"github.com/joshuapare/nodestore/node"
	"github.com/joshuapare/nodestore/ttlmgr"
	"github.com/joshuapare/nodestore/volume"
)

// Volume is one open node tree: a backing file, its root node, and the TTL
// manager that expires nodes on schedule.
type Volume struct {
	file *volume.File
	root *node.Node
	ttl  *ttlmgr.TtlManager
}

// OpenVolume opens the volume file at path, creating it if it does not yet
// exist, and starts its background TTL expiry worker.
func OpenVolume(path string) (*Volume, error) {
	var file *volume.File
	var err error
	if volume.Exists(path) {
		file, err = volume.Open(path)
	} else {
		file, err = volume.Create(path)
	}
	if err != nil {
		return nil, err
	}

	v := &Volume{file: file}

	mgr, err := ttlmgr.New(file, v)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	v.ttl = mgr

	root, err := node.NewRoot(file, mgr)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	v.root = root

	mgr.Start()
	return v, nil
}

// Root returns this volume's root node.
func (v *Volume) Root() *node.Node {
	return v.root
}

// File returns the underlying record store, for diagnostics.
func (v *Volume) File() *volume.File {
	return v.file
}

// Close stops the TTL worker and closes the backing file.
func (v *Volume) Close() error {
	v.ttl.Stop()
	return v.file.Close()
}

// RemoveNodeAtPath implements ttlmgr.Deleter: it descends from the root
// along path's node_ids and removes the final one. A path whose target (or
// an ancestor) is already gone is treated as success — the deletion it
// names has already happened by some other means.
func (v *Volume) RemoveNodeAtPath(path []uint64) error {
	if len(path) <= 1 {
		return nil
	}
	cur := v.root
	for _, id := range path[1 : len(path)-1] {
		child, err := cur.GetChildByID(id)
		if err != nil {
			if errors.Is(err, node.ErrNoSuchNode) {
				return nil
			}
			return err
		}
		cur = child
	}
	if err := cur.RemoveChildByID(path[len(path)-1]); err != nil && !errors.Is(err, node.ErrNoSuchNode) {
		return err
	}
	return nil
}
