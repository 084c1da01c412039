// Package ttlmgr schedules node expiry: a background worker sleeps until
// the earliest deadline in a (deadline, node_id) index, then deletes that
// node, per spec.md §4.5.
package ttlmgr

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joshuapare/nodestore/bptree"
	"github.com/joshuapare/nodestore/serialize"
	"github.com/joshuapare/nodestore/volume"
)

// Deleter removes the node named by an absolute node_id path. Implemented
// by the store package so ttlmgr never depends on node/store directly.
type Deleter interface {
	RemoveNodeAtPath(path []uint64) error
}

// TtlManager owns the on-disk (deadline, node_id) -> path index and a
// background goroutine that deletes nodes as their deadlines pass.
type TtlManager struct {
	mu      sync.Mutex
	tree    *bptree.Tree[[]uint64]
	deleter Deleter

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func pathCodec() bptree.Codec[[]uint64] {
	return bptree.Codec[[]uint64]{
		Encode: func(v []uint64) []byte {
			w := serialize.NewWriter()
			serialize.WriteSlice(w, v, (*serialize.Writer).WriteU64)
			return w.Bytes()
		},
		Decode: func(b []byte) ([]uint64, error) {
			r := serialize.NewReader(b)
			return serialize.ReadSlice(r, (*serialize.Reader).ReadU64)
		},
	}
}

// New opens the volume's existing TTL index, or creates one if this is a
// fresh volume, and wires deleter as the callback for expired nodes.
func New(vol *volume.File, deleter Deleter) (*TtlManager, error) {
	existing := vol.BPlusTreeRecordID()

	var tree *bptree.Tree[[]uint64]
	var err error
	if !existing.IsNone() {
		tree, err = bptree.Open(vol, existing, pathCodec())
	} else {
		tree, err = bptree.Create(vol, pathCodec())
		if err == nil {
			vol.SetBPlusTreeRecordID(tree.MetaID())
		}
	}
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	close(done) // already "done": Stop must not block if Start is never called

	return &TtlManager{
		tree:    tree,
		deleter: deleter,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    done,
	}, nil
}

// Start launches the background expiry worker. Start must be called at
// most once per TtlManager.
func (m *TtlManager) Start() {
	m.done = make(chan struct{})
	go m.run()
}

// Stop signals the worker to exit and waits for it to do so. Stop is safe
// to call even if Start was never called.
func (m *TtlManager) Stop() {
	select {
	case <-m.stop:
		// already stopped
	default:
		close(m.stop)
	}
	<-m.done
}

// SetTimeToRemove cancels oldDeadlineMillis (if nonzero) and schedules
// newDeadlineMillis (if nonzero) for the node at the end of path.
func (m *TtlManager) SetTimeToRemove(path []uint64, newDeadlineMillis, oldDeadlineMillis int64) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	nodeID := path[len(path)-1]

	m.mu.Lock()
	if oldDeadlineMillis != 0 {
		oldKey := bptree.Key{Deadline: oldDeadlineMillis, NodeID: nodeID}
		if err := m.tree.Remove(oldKey); err != nil && !errors.Is(err, bptree.ErrNotFound) {
			m.mu.Unlock()
			return err
		}
	}
	if newDeadlineMillis != 0 {
		newKey := bptree.Key{Deadline: newDeadlineMillis, NodeID: nodeID}
		if err := m.tree.Insert(newKey, path); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.mu.Unlock()

	m.signal()
	return nil
}

func (m *TtlManager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// run is the single background worker goroutine: peek the smallest
// deadline, sleep until it (or a call to SetTimeToRemove) wakes it, then
// delete whatever has expired.
func (m *TtlManager) run() {
	defer close(m.done)
	for {
		m.mu.Lock()
		key, path, found, err := m.tree.GetFirst()
		m.mu.Unlock()

		if err != nil {
			slog.Error("ttlmgr: failed to read next deadline", "error", err)
			if m.sleepOrStop(time.Second) {
				return
			}
			continue
		}

		if !found {
			select {
			case <-m.stop:
				return
			case <-m.wake:
			}
			continue
		}

		wait := time.Duration(key.Deadline-time.Now().UnixMilli()) * time.Millisecond
		if wait > 0 {
			if m.sleepOrStop(wait) {
				return
			}
			continue
		}

		m.mu.Lock()
		removeErr := m.tree.Remove(key)
		m.mu.Unlock()
		if removeErr != nil && !errors.Is(removeErr, bptree.ErrNotFound) {
			slog.Error("ttlmgr: failed to remove expired index entry", "error", removeErr)
			continue
		}

		if err := m.deleter.RemoveNodeAtPath(path); err != nil {
			slog.Error("ttlmgr: scheduled deletion failed", "path", path, "error", err)
		}
	}
}

// sleepOrStop waits up to d for a stop or wake signal. It reports whether
// the manager was stopped.
func (m *TtlManager) sleepOrStop(d time.Duration) (stopped bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-m.stop:
		return true
	case <-m.wake:
		return false
	case <-timer.C:
		return false
	}
}
