package diag

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nodestore/node"
	"github.com/joshuapare/nodestore/volume"
)

func TestCheckCleanVolumeReportsNoProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	vol, err := volume.Create(path)
	require.NoError(t, err)

	root, err := node.NewRoot(vol, nil)
	require.NoError(t, err)
	_, err = root.AddChild("a")
	require.NoError(t, err)
	require.NoError(t, vol.Close())

	report, err := Check(path)
	require.NoError(t, err)
	require.True(t, report.OK(), "problems: %v", report.Problems)
	require.Equal(t, 2, report.NodeCount)
}

func TestCheckEmptyVolumeHasRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	vol, err := volume.Create(path)
	require.NoError(t, err)
	_, err = node.NewRoot(vol, nil)
	require.NoError(t, err)
	require.NoError(t, vol.Close())

	report, err := Check(path)
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, 1, report.NodeCount)
}
