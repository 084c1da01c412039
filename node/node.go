// Package node implements the persistent tree node: one record per node,
// holding a property map and a child table, with a rewrite-cascade protocol
// that keeps exactly one on-disk pointer to every record consistent after
// any mutation (spec.md §4.4).
package node

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/joshuapare/nodestore/serialize"
	"github.com/joshuapare/nodestore/volume"
)

// normalizeName NFC-normalizes a child or property name and rejects '.',
// the reserved path separator. Canonicalizing before every lookup and
// insert keeps visually-identical names (distinct Unicode encodings of the
// same grapheme) from ever coexisting as two child-table entries.
func normalizeName(name string) (string, error) {
	if strings.Contains(name, ".") {
		return "", ErrInvalidName
	}
	return norm.NFC.String(name), nil
}

// TTLPublisher receives deadline changes for a node's relative path, so the
// TtlManager can keep its own (deadline, node_id) index in sync without
// node importing it back (avoiding an import cycle).
type TTLPublisher interface {
	SetTimeToRemove(path []uint64, newDeadlineMillis, oldDeadlineMillis int64) error
}

type childInfo struct {
	recordID volume.RecordID
	nodeID   uint64
}

// Node is one node of the tree: a single mutex guards its properties, child
// table, record_id, node_id, and time_to_remove (spec.md §5).
type Node struct {
	mu sync.Mutex

	vol   *volume.File
	ttl   TTLPublisher
	cache *childCache

	parent *Node // strong reference; nil for the root

	recordID     volume.RecordID
	nodeID       uint64
	timeToRemove time.Time
	deleted      bool

	properties map[string]Value
	children   map[string]childInfo
	childNames map[uint64]string
}

// NewRoot materializes the volume's root node, creating an empty one if the
// volume has none yet.
func NewRoot(vol *volume.File, ttl TTLPublisher) (*Node, error) {
	cache := newChildCache()
	rootID := vol.RootNodeRecordID()
	if !rootID.IsNone() {
		root, err := materializeNode(vol, ttl, cache, nil, rootID)
		if err != nil {
			return nil, err
		}
		cache.put(root.nodeID, root)
		return root, nil
	}

	root := &Node{
		vol:        vol,
		ttl:        ttl,
		cache:      cache,
		properties: map[string]Value{},
		children:   map[string]childInfo{},
		childNames: map[uint64]string{},
	}
	if err := root.createRecord(); err != nil {
		return nil, err
	}
	vol.SetRootNodeRecordID(root.recordID)
	cache.put(root.nodeID, root)
	return root, nil
}

// NodeID returns this node's stable, volume-unique identifier.
func (n *Node) NodeID() uint64 {
	return n.nodeID
}

// RecordID returns this node's current backing record. It changes whenever
// a mutation causes the node to outgrow its slot.
func (n *Node) RecordID() volume.RecordID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.recordID
}

// Path returns the sequence of node_ids from the root down to and
// including this node.
func (n *Node) Path() []uint64 {
	var ids []uint64
	for cur := n; cur != nil; cur = cur.parent {
		ids = append([]uint64{cur.nodeID}, ids...)
	}
	return ids
}

// ChildNames returns this node's child names in unspecified order, for
// diagnostics and tree listings.
func (n *Node) ChildNames() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	return names
}

// PropertyNames returns this node's property names in unspecified order.
func (n *Node) PropertyNames() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.properties))
	for name := range n.properties {
		names = append(names, name)
	}
	return names
}

// IsDeleted reports whether this node's record has already been freed.
func (n *Node) IsDeleted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.deleted
}

// GetChild returns the named child, materializing it from disk on first
// access and returning the cached handle on subsequent calls.
func (n *Node) GetChild(name string) (*Node, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		return nil, ErrNodeDeleted
	}
	info, ok := n.children[name]
	n.mu.Unlock()
	if !ok {
		return nil, ErrNoSuchNode
	}

	if cached, ok := n.cache.get(info.nodeID); ok {
		return cached, nil
	}
	child, err := materializeNode(n.vol, n.ttl, n.cache, n, info.recordID)
	if err != nil {
		return nil, err
	}
	n.cache.put(info.nodeID, child)
	return child, nil
}

// GetChildByID resolves a child by its stable node_id rather than its
// current name, used by store.Volume.RemoveNodeAtPath during TTL-driven
// deletion.
func (n *Node) GetChildByID(nodeID uint64) (*Node, error) {
	n.mu.Lock()
	name, ok := n.childNames[nodeID]
	n.mu.Unlock()
	if !ok {
		return nil, ErrNoSuchNode
	}
	return n.GetChild(name)
}

// GetNode descends a dotted relative path, returning ErrNoSuchNode at the
// first missing segment.
func (n *Node) GetNode(relativePath string) (*Node, error) {
	if relativePath == "" {
		return n, nil
	}
	cur := n
	for _, seg := range strings.Split(relativePath, ".") {
		child, err := cur.GetChild(seg)
		if err != nil {
			return nil, err
		}
		cur = child
	}
	return cur, nil
}

// AddChild creates a new empty child node under name.
func (n *Node) AddChild(name string) (*Node, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	if n.deleted {
		n.mu.Unlock()
		return nil, ErrNodeDeleted
	}
	if _, exists := n.children[name]; exists {
		n.mu.Unlock()
		return nil, ErrNodeAlreadyExists
	}
	nodeID := n.vol.AllocateNextNodeID()
	n.mu.Unlock()

	child := &Node{
		vol:        n.vol,
		ttl:        n.ttl,
		cache:      n.cache,
		parent:     n,
		nodeID:     nodeID,
		properties: map[string]Value{},
		children:   map[string]childInfo{},
		childNames: map[uint64]string{},
	}
	if err := child.createRecord(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.children[name] = childInfo{recordID: child.recordID, nodeID: nodeID}
	n.childNames[nodeID] = name
	n.mu.Unlock()

	n.cache.put(nodeID, child)

	if err := n.rewriteAndCascade(); err != nil {
		return nil, err
	}
	return child, nil
}

// RemoveChild deletes name's entire subtree (iteratively, not recursively)
// and removes it from this node's child table.
func (n *Node) RemoveChild(name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	n.mu.Lock()
	info, ok := n.children[name]
	n.mu.Unlock()
	if !ok {
		return ErrNoSuchNode
	}

	child, err := n.GetChild(name)
	if err != nil {
		return err
	}
	if err := deleteSubtree(child); err != nil {
		return err
	}

	n.mu.Lock()
	delete(n.children, name)
	delete(n.childNames, info.nodeID)
	n.mu.Unlock()
	n.cache.remove(info.nodeID)

	return n.rewriteAndCascade()
}

// RemoveChildByID resolves name by node_id and removes it, used by
// store.Volume.RemoveNodeAtPath.
func (n *Node) RemoveChildByID(nodeID uint64) error {
	n.mu.Lock()
	name, ok := n.childNames[nodeID]
	n.mu.Unlock()
	if !ok {
		return ErrNoSuchNode
	}
	return n.RemoveChild(name)
}

// RenameChild renames a child in place, preserving its node_id and record.
func (n *Node) RenameChild(oldName, newName string) error {
	newName, err := normalizeName(newName)
	if err != nil {
		return err
	}
	oldName, err = normalizeName(oldName)
	if err != nil {
		return err
	}
	n.mu.Lock()
	if _, exists := n.children[newName]; exists {
		n.mu.Unlock()
		return ErrNodeAlreadyExists
	}
	info, ok := n.children[oldName]
	if !ok {
		n.mu.Unlock()
		return ErrNoSuchNode
	}
	delete(n.children, oldName)
	n.children[newName] = info
	n.childNames[info.nodeID] = newName
	n.mu.Unlock()

	return n.rewriteAndCascade()
}

// SetProperty stores v under name, freeing any previous blob side record.
func (n *Node) SetProperty(name string, v Value) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	n.mu.Lock()
	if old, exists := n.properties[name]; exists && old.Kind == KindBlob && !old.BlobRecord.IsNone() {
		if err := n.vol.Free(old.BlobRecord); err != nil {
			n.mu.Unlock()
			return err
		}
	}
	n.properties[name] = v
	n.mu.Unlock()

	return n.rewriteAndCascade()
}

// SetBlob allocates a side record for data and stores a property pointing
// at it under name.
func (n *Node) SetBlob(name string, data []byte) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	id, err := n.vol.Allocate(len(data))
	if err != nil {
		return err
	}
	if err := n.vol.Write(id, data); err != nil {
		return err
	}
	return n.SetProperty(name, blobValue(uint64(len(data)), id))
}

// GetProperty returns name's stored value.
func (n *Node) GetProperty(name string) (Value, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Value{}, err
	}
	n.mu.Lock()
	v, ok := n.properties[name]
	n.mu.Unlock()
	if !ok {
		return Value{}, ErrNoSuchProperty
	}
	return v, nil
}

// GetBlob reads a blob property's side record in full.
func (n *Node) GetBlob(name string) ([]byte, error) {
	v, err := n.GetProperty(name)
	if err != nil {
		return nil, err
	}
	if v.Kind != KindBlob {
		return nil, ErrIncompatibleType
	}
	return n.vol.Read(v.BlobRecord, int(v.BlobSize))
}

// RemoveProperty deletes name, freeing its blob side record if any, and
// reports whether it was present.
func (n *Node) RemoveProperty(name string) (bool, error) {
	name, err := normalizeName(name)
	if err != nil {
		return false, err
	}
	n.mu.Lock()
	v, ok := n.properties[name]
	if !ok {
		n.mu.Unlock()
		return false, nil
	}
	delete(n.properties, name)
	n.mu.Unlock()

	if v.Kind == KindBlob && !v.BlobRecord.IsNone() {
		if err := n.vol.Free(v.BlobRecord); err != nil {
			return false, err
		}
	}
	if err := n.rewriteAndCascade(); err != nil {
		return false, err
	}
	return true, nil
}

// SetTimeToLive schedules this node for deletion after d, rejecting the
// root. A zero d cancels any pending deletion.
func (n *Node) SetTimeToLive(d time.Duration) error {
	n.mu.Lock()
	if n.parent == nil {
		n.mu.Unlock()
		return ErrRootTTL
	}
	oldDeadline := n.timeToRemove
	var newDeadline time.Time
	if d > 0 {
		newDeadline = time.Now().Add(d)
	}
	n.timeToRemove = newDeadline
	path := n.Path()
	n.mu.Unlock()

	if err := n.rewriteAndCascade(); err != nil {
		return err
	}
	if n.ttl == nil {
		return nil
	}
	return n.ttl.SetTimeToRemove(path, millisOrZero(newDeadline), millisOrZero(oldDeadline))
}

func millisOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func (n *Node) createRecord() error {
	bytes := n.encode()
	id, err := n.vol.Allocate(len(bytes))
	if err != nil {
		return err
	}
	if err := n.vol.Write(id, bytes); err != nil {
		return err
	}
	n.recordID = id
	return nil
}

// rewriteLocked serializes and persists n, assuming n.mu is already held.
func (n *Node) rewriteLocked() (moved bool, err error) {
	bytes := n.encode()
	newID, err := n.vol.Resize(n.recordID, bytes)
	if err != nil {
		return false, err
	}
	moved = newID != n.recordID
	n.recordID = newID
	return moved, nil
}

// rewriteAndCascade persists n and, if its record moved, notifies its
// parent (or the volume header, for the root) so the one place that points
// at n's record stays correct (spec.md §4.4 "rewrite protocol").
func (n *Node) rewriteAndCascade() error {
	n.mu.Lock()
	moved, err := n.rewriteLocked()
	if err != nil {
		n.mu.Unlock()
		return err
	}
	parent := n.parent
	nodeID := n.nodeID
	newID := n.recordID
	n.mu.Unlock()

	if !moved {
		return nil
	}
	if parent != nil {
		return parent.childRecordIDUpdated(nodeID, newID)
	}
	n.vol.SetRootNodeRecordID(newID)
	return nil
}

// childRecordIDUpdated patches the child-table entry for childNodeID and
// rewrites itself, cascading further up if needed.
func (n *Node) childRecordIDUpdated(childNodeID uint64, newRecordID volume.RecordID) error {
	n.mu.Lock()
	name, ok := n.childNames[childNodeID]
	if !ok {
		n.mu.Unlock()
		return nil
	}
	info := n.children[name]
	info.recordID = newRecordID
	n.children[name] = info
	n.mu.Unlock()

	return n.rewriteAndCascade()
}

// deleteSubtree frees every record (and blob side record) in root's
// subtree, including root itself, using an explicit work list instead of
// recursion so deletion depth is unbounded without growing the call stack.
func deleteSubtree(root *Node) error {
	var order []*Node
	stack := []*Node{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cur.mu.Lock()
		names := make([]string, 0, len(cur.children))
		for name := range cur.children {
			names = append(names, name)
		}
		cur.mu.Unlock()

		for _, name := range names {
			grandchild, err := cur.GetChild(name)
			if err != nil {
				return err
			}
			stack = append(stack, grandchild)
		}
		order = append(order, cur)
	}

	for i := len(order) - 1; i >= 0; i-- {
		cur := order[i]
		cur.mu.Lock()
		for _, prop := range cur.properties {
			if prop.Kind == KindBlob && !prop.BlobRecord.IsNone() {
				if err := cur.vol.Free(prop.BlobRecord); err != nil {
					cur.mu.Unlock()
					return err
				}
			}
		}
		if err := cur.vol.Free(cur.recordID); err != nil {
			cur.mu.Unlock()
			return err
		}
		cur.deleted = true
		cur.mu.Unlock()
		cur.cache.remove(cur.nodeID)
	}
	return nil
}

func (n *Node) encode() []byte {
	w := serialize.NewWriter()
	w.WriteU64(n.nodeID)
	w.WriteTime(n.timeToRemove)
	serialize.WriteMap(w, n.properties, (*serialize.Writer).WriteString, encodeValue)
	serialize.WriteMap(w, n.children, (*serialize.Writer).WriteString, func(w *serialize.Writer, c childInfo) {
		w.WriteU64(uint64(c.recordID))
		w.WriteU64(c.nodeID)
	})
	return w.Bytes()
}

func materializeNode(vol *volume.File, ttl TTLPublisher, cache *childCache, parent *Node, recordID volume.RecordID) (*Node, error) {
	b, err := vol.Read(recordID, volume.SlotSizeFor(recordID))
	if err != nil {
		return nil, err
	}
	r := serialize.NewReader(b)
	nodeID, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	ttr, err := r.ReadTime()
	if err != nil {
		return nil, err
	}
	props, err := serialize.ReadMap(r, (*serialize.Reader).ReadString, decodeValue)
	if err != nil {
		return nil, err
	}
	children, err := serialize.ReadMap(r, (*serialize.Reader).ReadString, func(r *serialize.Reader) (childInfo, error) {
		rec, err := r.ReadU64()
		if err != nil {
			return childInfo{}, err
		}
		nid, err := r.ReadU64()
		if err != nil {
			return childInfo{}, err
		}
		return childInfo{recordID: volume.RecordID(rec), nodeID: nid}, nil
	})
	if err != nil {
		return nil, err
	}

	n := &Node{
		vol: vol, ttl: ttl, cache: cache, parent: parent,
		recordID: recordID, nodeID: nodeID, timeToRemove: ttr,
		properties: props, children: children,
		childNames: make(map[uint64]string, len(children)),
	}
	for name, info := range children {
		n.childNames[info.nodeID] = name
	}
	return n, nil
}
