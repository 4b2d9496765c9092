package accel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInputWindowIteratorSplitsOnCapacity constructs a single output
// tile fed by two source rows whose combined feature footprint
// exceeds half the input buffer, forcing the inner iterator to split
// them into two InputWindows. Exactly one yielded InputWindow may
// have IsLastRow true, and it must be the final one.
func TestInputWindowIteratorSplitsOnCapacity(t *testing.T) {
	g := &Graph{NumNodes: 3}
	g.csc = [][]int{{}, {}, {0, 1}}
	g.csr = [][]int{{2}, {2}, {}}

	feats := NewDenseNodeFeatures(3, 4)
	feats.SetFeatures(0, []int{0, 1, 2, 3})
	feats.SetFeatures(1, []int{0, 1, 2, 3})
	feats.SetFeatures(2, nil)

	ow := &OutputWindow{ID: WindowId{LayerID: 0, OutputID: 0}, StartOutput: 2, EndOutput: 3, InputDim: 4, OutputDim: 2}
	it := newInputWindowIterator(g, feats, ow, 40)

	w1, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 0, w1.StartInput)
	assert.Equal(t, 1, w1.EndInput)
	assert.False(t, w1.IsLastRow)
	require.Len(t, w1.EdgeRanges, 1)
	assert.Equal(t, EdgeRange{Start: 0, End: 1}, w1.EdgeRanges[0])

	w2, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 1, w2.StartInput)
	assert.Equal(t, 2, w2.EndInput)
	assert.True(t, w2.IsLastRow)
	assert.Equal(t, EdgeRange{Start: 1, End: 2}, w2.EdgeRanges[0])

	_, ok = it.Next()
	assert.False(t, ok)
}

// TestSlidingWindowFiveNodeGraphTwoLayers tiles a 5-node graph with a
// 6-dim input layer feeding a 2-dim hidden layer on 64-byte input and
// agg buffers. The counts are hand-verified row by row: the 6-dim
// layer gets 1-node output tiles (32 bytes of agg buffer / 24 bytes
// per node) and at most two 16-byte feature rows per input window,
// giving 10 InputWindows (including a second window on the last
// tile contributed by node 4's self-loop), while the 2-dim layer's
// 4-node tiles and 8-byte rows need only 3.
func TestSlidingWindowFiveNodeGraphTwoLayers(t *testing.T) {
	g := &Graph{NumNodes: 5}
	g.csc = [][]int{{1, 2}, {2, 3, 4}, {0, 1, 4}, {0, 2, 4}, {2, 4}}
	g.buildCSR()

	layer0Feats := NewDenseNodeFeatures(5, 6)
	layer0Feats.SetFeatures(0, []int{1, 2, 4, 5})
	layer0Feats.SetFeatures(1, []int{0, 3, 4, 5})
	layer0Feats.SetFeatures(2, []int{0, 1, 2, 5})
	layer0Feats.SetFeatures(3, []int{0, 1, 2, 5})
	layer0Feats.SetFeatures(4, []int{0, 1, 2, 5})

	layer1Feats := NewDenseNodeFeatures(5, 2)
	for i := 0; i < 5; i++ {
		layer1Feats.SetFeatures(i, []int{0, 1})
	}

	const bufSize = 64

	layer0Src := NewLayerWindowSource(g, layer0Feats, 0 /* layerID */, 6 /* inputDim */, 2 /* outputDim */, bufSize, bufSize, false /* finalLayer */)
	layer0Count := 0
	for {
		_, ok := layer0Src.Next()
		if !ok {
			break
		}
		layer0Count++
	}
	assert.Equal(t, 10, layer0Count)

	layer1Src := NewLayerWindowSource(g, layer1Feats, 1 /* layerID */, 2 /* inputDim */, 2 /* outputDim */, bufSize, bufSize, true /* finalLayer */)
	layer1Count := 0
	for {
		_, ok := layer1Src.Next()
		if !ok {
			break
		}
		layer1Count++
	}
	assert.Equal(t, 3, layer1Count)

	assert.Equal(t, 13, layer0Count+layer1Count)
}

// TestLayerWindowSourceOrdering checks that WindowIds are emitted in
// strictly increasing lexicographic order.
func TestLayerWindowSourceOrdering(t *testing.T) {
	g := &Graph{NumNodes: 4}
	g.csc = [][]int{{}, {0}, {0, 1}, {1, 2}}
	g.csr = [][]int{{1, 2}, {2, 3}, {3}, {}}

	feats := NewDenseNodeFeatures(4, 2)
	for i := 0; i < 4; i++ {
		feats.SetFeatures(i, []int{0, 1})
	}

	src := NewLayerWindowSource(g, feats, 0 /* layerID */, 2 /* inputDim */, 2 /* outputDim */, 64 /* aggBufferSize */, 64 /* inputBufferSize */, true /* finalLayer */)

	var prev *WindowId
	count := 0
	for {
		w, ok := src.Next()
		if !ok {
			break
		}
		if prev != nil {
			assert.True(t, prev.Less(w.ID), "expected %v < %v", *prev, w.ID)
		}
		prev = &w.ID
		count++
	}
	assert.Greater(t, count, 0)
}
