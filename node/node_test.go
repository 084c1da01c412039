package node

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nodestore/volume"
)

type recordingTTL struct {
	calls []ttlCall
}

type ttlCall struct {
	path        []uint64
	newDeadline int64
	oldDeadline int64
}

func (r *recordingTTL) SetTimeToRemove(path []uint64, newDeadline, oldDeadline int64) error {
	cp := make([]uint64, len(path))
	copy(cp, path)
	r.calls = append(r.calls, ttlCall{path: cp, newDeadline: newDeadline, oldDeadline: oldDeadline})
	return nil
}

func newTestVolume(t *testing.T) *volume.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodes.vol")
	f, err := volume.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestNewRootCreatesEmptyRoot(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)
	require.False(t, root.RecordID().IsNone())
	require.False(t, root.IsDeleted())
}

func TestAddChildThenGetChild(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	child, err := root.AddChild("a")
	require.NoError(t, err)
	require.NotNil(t, child)

	got, err := root.GetChild("a")
	require.NoError(t, err)
	require.Equal(t, child.NodeID(), got.NodeID())
}

func TestAddChildRejectsDuplicateAndDottedName(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	_, err = root.AddChild("a")
	require.NoError(t, err)
	_, err = root.AddChild("a")
	require.ErrorIs(t, err, ErrNodeAlreadyExists)

	_, err = root.AddChild("a.b")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestGetChildMissingReturnsNoSuchNode(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	_, err = root.GetChild("missing")
	require.ErrorIs(t, err, ErrNoSuchNode)
}

func TestGetNodeDescendsDottedPath(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	a, err := root.AddChild("a")
	require.NoError(t, err)
	b, err := a.AddChild("b")
	require.NoError(t, err)

	got, err := root.GetNode("a.b")
	require.NoError(t, err)
	require.Equal(t, b.NodeID(), got.NodeID())
}

func TestRenameChildPreservesNodeID(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	child, err := root.AddChild("old")
	require.NoError(t, err)
	require.NoError(t, root.RenameChild("old", "new"))

	got, err := root.GetChild("new")
	require.NoError(t, err)
	require.Equal(t, child.NodeID(), got.NodeID())

	_, err = root.GetChild("old")
	require.ErrorIs(t, err, ErrNoSuchNode)
}

func TestRenameChildRejectsCollision(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	_, err = root.AddChild("a")
	require.NoError(t, err)
	_, err = root.AddChild("b")
	require.NoError(t, err)

	require.ErrorIs(t, root.RenameChild("a", "b"), ErrNodeAlreadyExists)
}

func TestSetAndGetProperty(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	require.NoError(t, root.SetProperty("count", Int64Value(42)))

	v, err := root.GetProperty("count")
	require.NoError(t, err)
	i, err := v.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(42), i)
}

func TestGetPropertyMissing(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	_, err = root.GetProperty("nope")
	require.ErrorIs(t, err, ErrNoSuchProperty)
}

func TestRemovePropertyReportsPresence(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	require.NoError(t, root.SetProperty("x", Int32Value(1)))

	removed, err := root.RemoveProperty("x")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = root.RemoveProperty("x")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestSetBlobAndGetBlobRoundTrip(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	data := []byte("hello blob world")
	require.NoError(t, root.SetBlob("payload", data))

	got, err := root.GetBlob("payload")
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestSetBlobFreesPreviousRecord(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	require.NoError(t, root.SetBlob("payload", []byte("first")))
	v1, err := root.GetProperty("payload")
	require.NoError(t, err)

	require.NoError(t, root.SetBlob("payload", []byte("second, but longer")))
	v2, err := root.GetProperty("payload")
	require.NoError(t, err)
	require.NotEqual(t, v1.BlobRecord, v2.BlobRecord)

	got, err := root.GetBlob("payload")
	require.NoError(t, err)
	require.Equal(t, []byte("second, but longer"), got)

	// The first blob's slot is back on its class free list, so the next
	// allocation of that class reuses it.
	reused, err := vol.Allocate(len("first"))
	require.NoError(t, err)
	require.Equal(t, v1.BlobRecord, reused)
}

func TestSetTimeToLiveRejectsRoot(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	require.ErrorIs(t, root.SetTimeToLive(time.Minute), ErrRootTTL)
}

func TestSetTimeToLivePublishesToTTLManager(t *testing.T) {
	vol := newTestVolume(t)
	ttl := &recordingTTL{}
	root, err := NewRoot(vol, ttl)
	require.NoError(t, err)

	child, err := root.AddChild("expiring")
	require.NoError(t, err)

	require.NoError(t, child.SetTimeToLive(time.Minute))
	require.Len(t, ttl.calls, 1)
	require.Equal(t, child.Path(), ttl.calls[0].path)
	require.Zero(t, ttl.calls[0].oldDeadline)
	require.NotZero(t, ttl.calls[0].newDeadline)

	require.NoError(t, child.SetTimeToLive(2*time.Minute))
	require.Len(t, ttl.calls, 2)
	require.Equal(t, ttl.calls[0].newDeadline, ttl.calls[1].oldDeadline)
}

func TestRemoveChildDeletesSubtreeAndFreesRecords(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	a, err := root.AddChild("a")
	require.NoError(t, err)
	b, err := a.AddChild("b")
	require.NoError(t, err)
	require.NoError(t, b.SetBlob("data", []byte("some bytes")))

	require.NoError(t, root.RemoveChild("a"))

	_, err = root.GetChild("a")
	require.ErrorIs(t, err, ErrNoSuchNode)
	require.True(t, a.IsDeleted())
	require.True(t, b.IsDeleted())
}

func TestRemoveChildByIDResolvesStableID(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	child, err := root.AddChild("a")
	require.NoError(t, err)
	require.NoError(t, root.RenameChild("a", "renamed"))

	require.NoError(t, root.RemoveChildByID(child.NodeID()))
	_, err = root.GetChild("renamed")
	require.ErrorIs(t, err, ErrNoSuchNode)
}

func TestReopenRootSurvivesChildrenAndProperties(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	_, err = root.AddChild("a")
	require.NoError(t, err)
	require.NoError(t, root.SetProperty("p", StringValue("hi")))

	reopened, err := NewRoot(vol, nil)
	require.NoError(t, err)

	child, err := reopened.GetChild("a")
	require.NoError(t, err)
	require.NotNil(t, child)

	v, err := reopened.GetProperty("p")
	require.NoError(t, err)
	s, err := v.AsString()
	require.NoError(t, err)
	require.Equal(t, "hi", s)
}

func TestManyChildrenForceNodeRewrite(t *testing.T) {
	vol := newTestVolume(t)
	root, err := NewRoot(vol, nil)
	require.NoError(t, err)

	firstID := root.RecordID()
	for i := 0; i < 200; i++ {
		_, err := root.AddChild(longName(i))
		require.NoError(t, err)
	}
	require.NotEqual(t, firstID, root.RecordID())

	reopened, err := NewRoot(vol, nil)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		_, err := reopened.GetChild(longName(i))
		require.NoError(t, err)
	}
}

func longName(i int) string {
	return "child-name-padded-to-be-reasonably-long-" + strconv.Itoa(i)
}
