package mmio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.dat")

	mf, err := Create(path, 4096)
	require.NoError(t, err)

	copy(mf.Bytes(), []byte("hello"))
	mf.MarkDirty(0, 5)
	require.NoError(t, mf.Sync())
	require.NoError(t, mf.Close())

	mf2, err := Open(path)
	require.NoError(t, err)
	defer mf2.Close()

	require.Equal(t, "hello", string(mf2.Bytes()[:5]))
	require.EqualValues(t, 4096, mf2.Size())
}

func TestGrowPreservesContentAndZeroFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.dat")
	mf, err := Create(path, 4096)
	require.NoError(t, err)
	defer mf.Close()

	copy(mf.Bytes(), []byte("abc"))
	require.NoError(t, mf.Grow(8192))
	require.EqualValues(t, 8192, mf.Size())
	require.Equal(t, "abc", string(mf.Bytes()[:3]))
	for _, b := range mf.Bytes()[4096:4100] {
		require.Zero(t, b)
	}
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.dat")
	require.False(t, Exists(path))
	mf, err := Create(path, 4096)
	require.NoError(t, err)
	defer mf.Close()
	require.True(t, Exists(path))
}
