package accel

// OutputWindowIterator is the outer level of the two-level lazy
// window generator: it tiles the output-node axis into consecutive
// ranges sized to fit half the aggregator buffer, and for each tile
// hands back an InputWindowIterator covering the matching input-node
// work.
type OutputWindowIterator struct {
	g     *Graph
	feats *NodeFeatures

	layerID    int
	inputDim   int
	outputDim  int
	finalLayer bool

	inputBufferSize int
	outputSize      int

	n            int
	curStart     int
	nextOutputID int
}

// NewOutputWindowIterator builds the outer iterator for one layer.
// inputDim is the graph's raw feature size for layer 0, or the
// previous layer's hidden size otherwise; outputDim is this layer's
// hidden size.
func NewOutputWindowIterator(g *Graph, feats *NodeFeatures, layerID, inputDim, outputDim, aggBufferSize, inputBufferSize int, finalLayer bool) *OutputWindowIterator {
	outputSize := ((aggBufferSize / 2) / (inputDim * 4))
	if outputSize < 1 {
		outputSize = 1
	}
	return &OutputWindowIterator{
		g:               g,
		feats:           feats,
		layerID:         layerID,
		inputDim:        inputDim,
		outputDim:       outputDim,
		finalLayer:      finalLayer,
		inputBufferSize: inputBufferSize,
		outputSize:      outputSize,
		n:               g.NumNodes,
	}
}

// Next produces the next output tile's InputWindowIterator, or false
// once the output-node axis is exhausted.
func (o *OutputWindowIterator) Next() (*InputWindowIterator, bool) {
	if o.curStart >= o.n {
		return nil, false
	}
	endOut := o.curStart + o.outputSize
	if endOut > o.n {
		endOut = o.n
	}
	finalWindow := endOut >= o.n

	ow := &OutputWindow{
		ID:          WindowId{LayerID: o.layerID, OutputID: o.nextOutputID},
		StartOutput: o.curStart,
		EndOutput:   endOut,
		InputDim:    o.inputDim,
		OutputDim:   o.outputDim,
		FinalWindow: finalWindow,
		FinalLayer:  o.finalLayer,
	}

	inner := newInputWindowIterator(o.g, o.feats, ow, o.inputBufferSize)

	o.curStart = endOut
	o.nextOutputID++
	return inner, true
}

// InputWindowIterator is the inner level: it produces the InputWindows
// feeding one OutputWindow, preserving the skip-accumulate-shrink-
// advance algorithm intact.
type InputWindowIterator struct {
	g      *Graph
	feats  *NodeFeatures
	output *OutputWindow

	halfCap int
	n       int

	cur         int
	nextInputID int
}

func newInputWindowIterator(g *Graph, feats *NodeFeatures, output *OutputWindow, inputBufferSize int) *InputWindowIterator {
	return &InputWindowIterator{
		g:       g,
		feats:   feats,
		output:  output,
		halfCap: inputBufferSize / 2,
		n:       g.NumNodes,
	}
}

// Next produces the next InputWindow feeding this output tile, or
// false once the input-node axis is exhausted for this tile.
func (it *InputWindowIterator) Next() (*InputWindow, bool) {
	out := it.output

	// 1. Skip input rows that don't project onto this output tile.
	for it.cur < it.n && it.g.IsRowRangeEmpty(it.cur, out.StartOutput, out.EndOutput) {
		it.cur++
	}
	if it.cur >= it.n {
		return nil, false
	}
	start := it.cur

	// 2. Accumulate greedily until the next row would overflow half
	// the input-buffer capacity; always take at least the first row,
	// even if it alone overflows (forward progress guarantee).
	end := start
	total := 0
	for end < it.n {
		sz := len(it.feats.Features(end)) * 4
		if end > start && total+sz > it.halfCap {
			break
		}
		total += sz
		end++
		if total > it.halfCap {
			break
		}
	}

	// 3. Shrink from the right while the last row's projection is
	// empty.
	for end > start+1 && it.g.IsRowRangeEmpty(end-1, out.StartOutput, out.EndOutput) {
		end--
	}

	// 4. Record each output node's edge-range within [start, end).
	edgeRanges := make([]EdgeRange, out.Len())
	for j := 0; j < out.Len(); j++ {
		edgeRanges[j] = it.g.CSCRange(out.StartOutput+j, start, end)
	}

	// 5. is_last_row: no subsequent row projects onto this tile.
	isLastRow := true
	for i := end; i < it.n; i++ {
		if !it.g.IsRowRangeEmpty(i, out.StartOutput, out.EndOutput) {
			isLastRow = false
			break
		}
	}

	iw := &InputWindow{
		ID:         WindowId{LayerID: out.ID.LayerID, OutputID: out.ID.OutputID, InputID: it.nextInputID},
		Output:     out,
		StartInput: start,
		EndInput:   end,
		EdgeRanges: edgeRanges,
		IsLastRow:  isLastRow,
	}

	// 6. Advance the start pointer past the consumed range; the next
	// call's step 1 will skip forward to the next non-empty row.
	it.cur = end
	it.nextInputID++
	return iw, true
}

// LayerWindowSource flattens the two-level iterator into a single
// stream of InputWindows for one layer, advancing the outer iterator
// automatically when the inner one is exhausted.
type LayerWindowSource struct {
	outer *OutputWindowIterator
	inner *InputWindowIterator
}

func NewLayerWindowSource(g *Graph, feats *NodeFeatures, layerID, inputDim, outputDim, aggBufferSize, inputBufferSize int, finalLayer bool) *LayerWindowSource {
	return &LayerWindowSource{
		outer: NewOutputWindowIterator(g, feats, layerID, inputDim, outputDim, aggBufferSize, inputBufferSize, finalLayer),
	}
}

// Next returns the next InputWindow across the whole layer, or false
// once every output tile has been exhausted.
func (s *LayerWindowSource) Next() (*InputWindow, bool) {
	for {
		if s.inner != nil {
			if iw, ok := s.inner.Next(); ok {
				return iw, true
			}
			s.inner = nil
		}
		inner, ok := s.outer.Next()
		if !ok {
			return nil, false
		}
		s.inner = inner
	}
}
