package store

import (
	"strings"
	"sync"

	"github.com/joshuapare/nodestore/node"
)

// MountPoint records one volume, rooted at an optional node path inside that
// volume, mounted at a dotted path prefix. NodePath is resolved once at
// mount time; leaving it empty mounts the volume's own root.
type MountPoint struct {
	Prefix   string
	Volume   *Volume
	NodePath string
	base     *node.Node
}

type mountTrieNode struct {
	children map[string]*mountTrieNode
	mounts   []*MountPoint
}

func newMountTrieNode() *mountTrieNode {
	return &mountTrieNode{children: make(map[string]*mountTrieNode)}
}

// mountsAt returns the mounts recorded at n, most recently mounted last.
func mountsAt(n *mountTrieNode) []*MountPoint {
	if n == nil {
		return nil
	}
	return n.mounts
}

// Storage routes dotted paths across a trie of mounted volumes: the volume
// mounted at the longest matching prefix is tried first on the remainder of
// the path, and shallower mounts are tried when it lacks the node (see
// resolve), grounded in an index-builder style trie walk.
type Storage struct {
	mu   sync.RWMutex
	root *mountTrieNode
}

// NewStorage returns an empty Storage with nothing mounted.
func NewStorage() *Storage {
	return &Storage{root: newMountTrieNode()}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Mount attaches vol, rooted at nodePath inside it (empty mounts vol's own
// root), at prefix. nodePath is resolved once, here, against vol's current
// tree; ErrNoSuchNode propagates if it doesn't exist. A later mount at the
// same prefix is tried before an earlier one during resolution, but mounting
// never evicts an earlier mount — only Unmount does.
func (s *Storage) Mount(prefix string, vol *Volume, nodePath string) error {
	base, err := vol.Root().GetNode(nodePath)
	if err != nil {
		return err
	}

	segs := splitPath(prefix)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.root
	for _, seg := range segs {
		next, ok := cur.children[seg]
		if !ok {
			next = newMountTrieNode()
			cur.children[seg] = next
		}
		cur = next
	}
	cur.mounts = append(cur.mounts, &MountPoint{Prefix: prefix, Volume: vol, NodePath: nodePath, base: base})
	return nil
}

// Unmount removes the most recently mounted volume at prefix.
func (s *Storage) Unmount(prefix string) error {
	segs := splitPath(prefix)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.root
	for _, seg := range segs {
		next, ok := cur.children[seg]
		if !ok {
			return ErrNotMounted
		}
		cur = next
	}
	if len(cur.mounts) == 0 {
		return ErrNotMounted
	}
	cur.mounts = cur.mounts[:len(cur.mounts)-1]
	return nil
}

// resolve finds the node that path addresses across the mounted volumes.
// It tries the deepest matching prefix first and falls back to shallower
// ones, and within a prefix tries the most recently mounted volume first,
// returning the first mount whose base node actually has the remaining
// path — a mount that merely covers the prefix but lacks the requested
// node does not shadow a shallower mount that has it.
func (s *Storage) resolve(path string) (*node.Node, error) {
	segs := splitPath(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	cur := s.root
	trail := []*mountTrieNode{cur}
	for _, seg := range segs {
		next, ok := cur.children[seg]
		if !ok {
			break
		}
		cur = next
		trail = append(trail, cur)
	}

	var lastErr error = ErrNotMounted
	for depth := len(trail) - 1; depth >= 0; depth-- {
		mounts := mountsAt(trail[depth])
		if len(mounts) == 0 {
			continue
		}
		tail := strings.Join(segs[depth:], ".")
		for i := len(mounts) - 1; i >= 0; i-- {
			n, err := mounts[i].base.GetNode(tail)
			if err == nil {
				return n, nil
			}
			lastErr = err
		}
	}
	return nil, lastErr
}

// GetNode resolves path to a node across whichever volume is mounted over
// it.
func (s *Storage) GetNode(path string) (*node.Node, error) {
	return s.resolve(path)
}

// AddNode creates name under the node at parentPath.
func (s *Storage) AddNode(parentPath, name string) (*node.Node, error) {
	parent, err := s.GetNode(parentPath)
	if err != nil {
		return nil, err
	}
	return parent.AddChild(name)
}

// RemoveNode deletes name's subtree under the node at parentPath.
func (s *Storage) RemoveNode(parentPath, name string) error {
	parent, err := s.GetNode(parentPath)
	if err != nil {
		return err
	}
	return parent.RemoveChild(name)
}

// RenameNode renames oldName to newName under the node at parentPath.
func (s *Storage) RenameNode(parentPath, oldName, newName string) error {
	parent, err := s.GetNode(parentPath)
	if err != nil {
		return err
	}
	return parent.RenameChild(oldName, newName)
}

// GetProperty reads a property of the node at path.
func (s *Storage) GetProperty(path, name string) (node.Value, error) {
	n, err := s.GetNode(path)
	if err != nil {
		return node.Value{}, err
	}
	return n.GetProperty(name)
}

// SetProperty writes a property of the node at path.
func (s *Storage) SetProperty(path, name string, v node.Value) error {
	n, err := s.GetNode(path)
	if err != nil {
		return err
	}
	return n.SetProperty(name, v)
}

// RemoveProperty deletes a property of the node at path.
func (s *Storage) RemoveProperty(path, name string) (bool, error) {
	n, err := s.GetNode(path)
	if err != nil {
		return false, err
	}
	return n.RemoveProperty(name)
}
