package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesVolume(t *testing.T) {
	file := filepath.Join(t.TempDir(), "v.db")
	require.NoError(t, runOpen(file))
	require.NoError(t, runOpen(file)) // reopening an existing volume is fine
}

func TestSetGetRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "v.db")
	require.NoError(t, runOpen(file))

	setType = "int64"
	require.NoError(t, runSet(file, "", "count", "42"))

	s, vols, err := openStorage(file)
	require.NoError(t, err)
	defer closeAll(vols)

	v, err := s.GetProperty("", "count")
	require.NoError(t, err)
	i, err := v.AsInt64()
	require.NoError(t, err)
	require.Equal(t, int64(42), i)
}

func TestRmRemovesNode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "v.db")
	require.NoError(t, runOpen(file))

	s, vols, err := openStorage(file)
	require.NoError(t, err)
	_, err = s.AddNode("", "child")
	require.NoError(t, err)
	closeAll(vols)

	rmProperty = ""
	require.NoError(t, runRm(file, "child"))

	s2, vols2, err := openStorage(file)
	require.NoError(t, err)
	defer closeAll(vols2)
	_, err = s2.GetNode("child")
	require.Error(t, err)
}

func TestRmPropertyFlag(t *testing.T) {
	file := filepath.Join(t.TempDir(), "v.db")
	require.NoError(t, runOpen(file))

	setType = "string"
	require.NoError(t, runSet(file, "", "name", "hello"))

	rmProperty = "name"
	require.NoError(t, runRm(file, ""))
	rmProperty = ""

	s, vols, err := openStorage(file)
	require.NoError(t, err)
	defer closeAll(vols)
	_, err = s.GetProperty("", "name")
	require.Error(t, err)
}

func TestMountAndUnmount(t *testing.T) {
	primary := filepath.Join(t.TempDir(), "primary.db")
	secondary := filepath.Join(t.TempDir(), "secondary.db")
	require.NoError(t, runOpen(primary))
	require.NoError(t, runOpen(secondary))

	require.NoError(t, runMount(primary, "app", secondary, ""))

	s, vols, err := openStorage(primary)
	require.NoError(t, err)
	_, err = s.AddNode("app", "leaf")
	require.NoError(t, err)
	closeAll(vols)

	require.NoError(t, runUnmount(primary, "app"))

	s2, vols2, err := openStorage(primary)
	require.NoError(t, err)
	defer closeAll(vols2)
	_, err = s2.GetNode("app")
	require.Error(t, err)
}

func TestFsckCleanVolume(t *testing.T) {
	file := filepath.Join(t.TempDir(), "v.db")
	require.NoError(t, runOpen(file))
	require.NoError(t, runFsck(file))
}

func TestSplitLast(t *testing.T) {
	parent, leaf := splitLast("a.b.c")
	require.Equal(t, "a.b", parent)
	require.Equal(t, "c", leaf)

	parent, leaf = splitLast("solo")
	require.Equal(t, "", parent)
	require.Equal(t, "solo", leaf)
}
