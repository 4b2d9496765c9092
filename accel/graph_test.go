package accel_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rfielding/gcn-accel-sim/accel"
)

// TestLoadGraphFiveNodes parses a 5-node graph file and checks both
// adjacency views.
func TestLoadGraphFiveNodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.txt")
	require.NoError(t, writeFile(path, "f 6\n1 2\n2 3 4\n0 1 4\n0 2 4\n2 4\nend\n"))

	g, err := accel.LoadGraph(path)
	require.NoError(t, err)
	require.Equal(t, 5, g.NumNodes)
	require.Equal(t, 6, g.FeatureSize)

	require.Equal(t, []int{1, 2}, g.CSCNeighbors(0))
	require.Equal(t, []int{2, 3, 4}, g.CSCNeighbors(1))
	require.Equal(t, []int{0, 1, 4}, g.CSCNeighbors(2))

	// node 1 is an in-neighbor of nodes 0 and 2 -> csr[1] == [0, 2].
	require.False(t, g.IsRowRangeEmpty(1, 0, 1))
	require.False(t, g.IsRowRangeEmpty(1, 2, 3))
	require.True(t, g.IsRowRangeEmpty(1, 1, 2))
}

func TestLoadGraphMalformedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.txt")
	require.NoError(t, writeFile(path, "not a header\n1 2\nend\n"))
	_, err := accel.LoadGraph(path)
	require.Error(t, err)
}
