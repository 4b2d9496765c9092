package accel_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rfielding/gcn-accel-sim/accel"
)

// TestLoadNodeFeaturesSparseView parses a dense 0/1 matrix into
// per-node sorted index lists and the monotonic byte-offset table.
func TestLoadNodeFeaturesSparseView(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.txt")
	require.NoError(t, writeFile(path, "0 0 1 0 1 0\n1 0 0 1 1 1\n1 1 0 0 0 1\n"))

	nf, err := accel.LoadNodeFeatures(path)
	require.NoError(t, err)
	require.Equal(t, 3, nf.NumNodes)
	require.Equal(t, 6, nf.Dim)

	require.Equal(t, []int{2, 4}, nf.Features(0))
	require.Equal(t, []int{0, 3, 4, 5}, nf.Features(1))
	require.Equal(t, []int{0, 1, 5}, nf.Features(2))

	require.Equal(t, 0, nf.StartAddr(0))
	require.Equal(t, 8, nf.StartAddr(1))
	require.Equal(t, 24, nf.StartAddr(2))
	require.Equal(t, 36, nf.StartAddr(3))
	require.Equal(t, 36, nf.TotalBytes())
}

func TestLoadNodeFeaturesRaggedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.txt")
	require.NoError(t, writeFile(path, "0 0 1\n1 0\n"))
	_, err := accel.LoadNodeFeatures(path)
	require.Error(t, err)
}
