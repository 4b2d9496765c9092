package accel

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Graph holds the adjacency of the input layer in both directions.
// csc[i] is the sorted list of in-neighbors of node i (the column
// view: who feeds node i); csr[i] is the sorted list of out-neighbors
// of node i (the row view: who node i feeds). Both are built once at
// load time and never mutated afterward; the sliding window iterator
// relies on both being sorted for its range queries.
type Graph struct {
	NumNodes    int
	FeatureSize int
	csc         [][]int
	csr         [][]int
}

// LoadGraph parses a graph file: a header line "f <feature_size>",
// then one line per node giving its in-neighbors, terminated by a
// line beginning with "end" or "END".
func LoadGraph(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file %q: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		return nil, fmt.Errorf("graph file %q: missing header line", path)
	}
	header := strings.Fields(sc.Text())
	if len(header) != 2 || header[0] != "f" {
		return nil, fmt.Errorf("graph file %q: malformed header %q, want \"f <feature_size>\"", path, sc.Text())
	}
	featureSize, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("graph file %q: non-integer feature size %q: %w", path, header[1], err)
	}

	var csc [][]int
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "end") {
			break
		}
		if line == "" {
			csc = append(csc, nil)
			continue
		}
		fields := strings.Fields(line)
		neighbors := make([]int, 0, len(fields))
		for _, tok := range fields {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("graph file %q: non-integer neighbor %q on row %d: %w", path, tok, len(csc), err)
			}
			neighbors = append(neighbors, v)
		}
		sort.Ints(neighbors)
		csc = append(csc, neighbors)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading graph file %q: %w", path, err)
	}

	g := &Graph{
		NumNodes:    len(csc),
		FeatureSize: featureSize,
		csc:         csc,
	}
	g.buildCSR()
	return g, nil
}

// buildCSR derives the out-neighbor (row) view from the in-neighbor
// (column) view by transposition. The sliding window iterator needs
// both: CSC for per-output edge ranges, CSR for row-projection
// emptiness queries.
func (g *Graph) buildCSR() {
	g.csr = make([][]int, g.NumNodes)
	for col, neighbors := range g.csc {
		for _, row := range neighbors {
			if row < 0 || row >= g.NumNodes {
				continue
			}
			g.csr[row] = append(g.csr[row], col)
		}
	}
	for i := range g.csr {
		sort.Ints(g.csr[i])
	}
}

// rangeOf returns the index range within the sorted slice ids whose
// values fall in [start, end).
func rangeOf(ids []int, start, end int) EdgeRange {
	lo := sort.SearchInts(ids, start)
	hi := sort.SearchInts(ids, end)
	return EdgeRange{Start: lo, End: hi}
}

// CSCRange returns the positions within node's in-neighbor list whose
// values fall in [start, end).
func (g *Graph) CSCRange(node, start, end int) EdgeRange {
	return rangeOf(g.csc[node], start, end)
}

// CSCNeighbors returns node's full sorted in-neighbor list.
func (g *Graph) CSCNeighbors(node int) []int { return g.csc[node] }

// CSRRange returns the positions within node's out-neighbor list whose
// values fall in [start, end).
func (g *Graph) CSRRange(node, start, end int) EdgeRange {
	return rangeOf(g.csr[node], start, end)
}

// IsRowRangeEmpty reports whether node's out-neighbors have no
// member in [start, end), used by the inner window iterator to skip
// input rows that don't project onto the current outer window.
func (g *Graph) IsRowRangeEmpty(node, start, end int) bool {
	return g.CSRRange(node, start, end).Empty()
}
