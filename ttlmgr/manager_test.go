package ttlmgr

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nodestore/volume"
)

type recordingDeleter struct {
	mu      sync.Mutex
	removed [][]uint64
	done    chan struct{}
}

func newRecordingDeleter() *recordingDeleter {
	return &recordingDeleter{done: make(chan struct{}, 16)}
}

func (d *recordingDeleter) RemoveNodeAtPath(path []uint64) error {
	d.mu.Lock()
	cp := make([]uint64, len(path))
	copy(cp, path)
	d.removed = append(d.removed, cp)
	d.mu.Unlock()
	d.done <- struct{}{}
	return nil
}

func newTestVolume(t *testing.T) *volume.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ttl.vol")
	f, err := volume.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func waitForDone(t *testing.T, d *recordingDeleter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-d.done:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for deletion %d/%d", i+1, n)
		}
	}
}

func TestSetTimeToRemoveTriggersDeletionAtDeadline(t *testing.T) {
	vol := newTestVolume(t)
	deleter := newRecordingDeleter()
	mgr, err := New(vol, deleter)
	require.NoError(t, err)
	mgr.Start()
	defer mgr.Stop()

	deadline := time.Now().Add(30 * time.Millisecond).UnixMilli()
	require.NoError(t, mgr.SetTimeToRemove([]uint64{1, 7}, deadline, 0))

	waitForDone(t, deleter, 1)
	deleter.mu.Lock()
	defer deleter.mu.Unlock()
	require.Equal(t, []uint64{1, 7}, deleter.removed[0])
}

func TestSetTimeToRemoveCancelsPreviousDeadline(t *testing.T) {
	vol := newTestVolume(t)
	deleter := newRecordingDeleter()
	mgr, err := New(vol, deleter)
	require.NoError(t, err)
	mgr.Start()
	defer mgr.Stop()

	farDeadline := time.Now().Add(50 * time.Millisecond).UnixMilli()
	require.NoError(t, mgr.SetTimeToRemove([]uint64{1, 2}, farDeadline, 0))

	nearDeadline := time.Now().Add(10 * time.Millisecond).UnixMilli()
	require.NoError(t, mgr.SetTimeToRemove([]uint64{1, 2}, nearDeadline, farDeadline))

	waitForDone(t, deleter, 1)

	time.Sleep(80 * time.Millisecond)
	deleter.mu.Lock()
	defer deleter.mu.Unlock()
	require.Len(t, deleter.removed, 1, "cancelled deadline must not fire a second deletion")
}

func TestEmptyPathRejected(t *testing.T) {
	vol := newTestVolume(t)
	deleter := newRecordingDeleter()
	mgr, err := New(vol, deleter)
	require.NoError(t, err)

	require.ErrorIs(t, mgr.SetTimeToRemove(nil, 1, 0), ErrEmptyPath)
}

func TestStopWithoutStartDoesNotBlock(t *testing.T) {
	vol := newTestVolume(t)
	deleter := newRecordingDeleter()
	mgr, err := New(vol, deleter)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		mgr.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked forever when Start was never called")
	}
}

func TestScheduledEntrySurvivesStopAndReopen(t *testing.T) {
	vol := newTestVolume(t)
	deleter := newRecordingDeleter()
	mgr, err := New(vol, deleter)
	require.NoError(t, err)
	mgr.Start()

	require.NoError(t, mgr.SetTimeToRemove([]uint64{5}, time.Now().Add(time.Hour).UnixMilli(), 0))
	mgr.Stop()

	reopened, err := New(vol, deleter)
	require.NoError(t, err)
	reopened.Start()
	defer reopened.Stop()

	_, _, found, err := reopened.tree.GetFirst()
	require.NoError(t, err)
	require.True(t, found)
}
