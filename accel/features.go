package accel

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// NodeFeatures is the per-layer sparse feature view: for each node,
// the sorted list of non-zero feature column indices, plus a
// monotonic start_addrs table giving the byte offset where each
// node's features begin in a contiguous address space. Each index
// occupies 4 bytes (a 32-bit value), matching the memory interface's
// address arithmetic in the pipeline scheduler's H2 handler.
type NodeFeatures struct {
	NumNodes   int
	Dim        int
	indices    [][]int
	startAddrs []int
}

const featureElemBytes = 4

// LoadNodeFeatures parses a dense 0/1 feature matrix, one row per
// node, space-separated columns. Any non-zero cell contributes its
// column index to that node's sparse feature list.
func LoadNodeFeatures(path string) (*NodeFeatures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening features file %q: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var indices [][]int
	dim := -1
	row := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if dim == -1 {
			dim = len(fields)
		} else if len(fields) != dim {
			return nil, fmt.Errorf("features file %q: row %d has %d columns, want %d", path, row, len(fields), dim)
		}
		var rowIdx []int
		for col, tok := range fields {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("features file %q: non-integer cell %q at row %d col %d: %w", path, tok, row, col, err)
			}
			if v != 0 {
				rowIdx = append(rowIdx, col)
			}
		}
		indices = append(indices, rowIdx)
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading features file %q: %w", path, err)
	}

	nf := &NodeFeatures{NumNodes: len(indices), Dim: dim, indices: indices}
	nf.buildStartAddrs()
	return nf, nil
}

// NewDenseNodeFeatures builds a NodeFeatures view of numNodes nodes
// with feature dimension dim and every node's feature set empty;
// SetFeatures fills the rows in.
func NewDenseNodeFeatures(numNodes, dim int) *NodeFeatures {
	nf := &NodeFeatures{NumNodes: numNodes, Dim: dim, indices: make([][]int, numNodes)}
	nf.buildStartAddrs()
	return nf
}

func (nf *NodeFeatures) buildStartAddrs() {
	nf.startAddrs = make([]int, nf.NumNodes+1)
	for i := 0; i < nf.NumNodes; i++ {
		nf.startAddrs[i+1] = nf.startAddrs[i] + len(nf.indices[i])*featureElemBytes
	}
}

// Features returns node i's sorted non-zero feature indices.
func (nf *NodeFeatures) Features(i int) []int { return nf.indices[i] }

// SetFeatures overwrites node i's sparse feature set and rebuilds the
// start_addrs table.
func (nf *NodeFeatures) SetFeatures(i int, idx []int) {
	nf.indices[i] = idx
	nf.buildStartAddrs()
}

// StartAddr returns the byte offset at which node i's features begin.
// StartAddr(NumNodes) gives the total byte size of the layer.
func (nf *NodeFeatures) StartAddr(i int) int { return nf.startAddrs[i] }

// TotalBytes is the contiguous byte size of this layer's feature data.
func (nf *NodeFeatures) TotalBytes() int { return nf.startAddrs[nf.NumNodes] }
