package accel

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SystemState is the pipeline scheduler's own top-level state.
type SystemState int

const (
	SysWorking SystemState = iota
	SysChangedLayer
	SysNoMoreWindow
	SysFinished
)

func (s SystemState) String() string {
	switch s {
	case SysWorking:
		return "Working"
	case SysChangedLayer:
		return "ChangedLayer"
	case SysNoMoreWindow:
		return "NoMoreWindow"
	case SysFinished:
		return "Finished"
	default:
		return fmt.Sprintf("SystemState(%d)", int(s))
	}
}

const (
	deadlockWatchdogThreshold = 200_000
	deadlockMaxEpisodes       = 10
	denseLayerStride          = 0x10000000
)

// SystemConfig bundles every accelerator knob the scheduler needs
// beyond the graph and the per-layer feature files.
type SystemConfig struct {
	Mode            RunningMode
	InputBufferSize int
	AggBufferSize   int
	HiddenSize      []int
	MemSendSize     int
	MemRecvSize     int
	Aggregator      AggregatorSettings
	MLP             MLPSettings
	Sparsifier      SparsifierSettings
}

// System is the pipeline scheduler. It holds
// references to every component plus the current layer's window
// cursor, and drives one cycle of the whole pipeline per Cycle()
// call.
type System struct {
	cfg   SystemConfig
	graph *Graph
	log   *logrus.Logger

	numLayers int
	curLayer  int

	inputFeatures  *NodeFeatures
	initialFeature []*NodeFeatures // per-layer feature files: initialFeature[L] is layer L's real input; the final entry is the last layer's expected output and is never used as an input

	windowSource  *LayerWindowSource
	pendingWindow *InputWindow

	mem        *MemInterface
	agg        *Aggregator
	mlp        *MLP
	sparsifier *Sparsifier

	inputBuf    *InputBuffer
	aggBuf      *AggBuffer
	sparsifyBuf *SparsifyBuffer
	outputBuf   *OutputBuffer

	State      SystemState
	CycleCount uint64

	idleCycles       int
	deadlockEpisodes int
}

// NewSystem wires every component together and loads layer 0's
// window source. layerFeatures[L] is layer L's input features; only
// the first len(cfg.HiddenSize) entries are read. The CLI passes one
// entry per features_paths file, len(cfg.HiddenSize)+1 in all
// (validated by internal/config before reaching here).
func NewSystem(graph *Graph, layerFeatures []*NodeFeatures, oracle Oracle, cfg SystemConfig, log *logrus.Logger) *System {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &System{
		cfg:            cfg,
		graph:          graph,
		log:            log,
		numLayers:      len(cfg.HiddenSize),
		initialFeature: layerFeatures,

		mem:        NewMemInterface(oracle, cfg.MemSendSize, cfg.MemRecvSize),
		agg:        NewAggregator(cfg.Aggregator),
		mlp:        NewMLP(cfg.MLP),
		sparsifier: NewSparsifier(cfg.Sparsifier),

		inputBuf:    &InputBuffer{},
		aggBuf:      &AggBuffer{},
		sparsifyBuf: &SparsifyBuffer{},
		outputBuf:   &OutputBuffer{},

		State: SysWorking,
	}
	s.startLayer(0, layerFeatures[0])
	return s
}

func (s *System) startLayer(layerID int, inputFeatures *NodeFeatures) {
	s.curLayer = layerID
	s.inputFeatures = inputFeatures
	final := layerID == s.numLayers-1
	outDim := s.cfg.HiddenSize[layerID]

	inDim := s.graph.FeatureSize
	if layerID > 0 {
		inDim = s.cfg.HiddenSize[layerID-1]
	}

	s.aggBuf.CurTemp = NewTempAggResult(s.graph.NumNodes)
	s.aggBuf.NextTemp = NewTempAggResult(s.graph.NumNodes)

	s.windowSource = NewLayerWindowSource(s.graph, inputFeatures, layerID, inDim, outDim, s.cfg.AggBufferSize, s.cfg.InputBufferSize, final)
	s.advancePendingWindow()
}

func (s *System) advancePendingWindow() {
	iw, ok := s.windowSource.Next()
	if !ok {
		s.pendingWindow = nil
		if s.State == SysWorking {
			s.State = SysNoMoreWindow
		}
		return
	}
	s.pendingWindow = iw
}

// Finished reports whether the simulation has completed.
func (s *System) Finished() bool { return s.State == SysFinished }

// Cycle advances every component's clock, then fires at most one
// handler, in order H1..H10. It also runs the deadlock watchdog.
func (s *System) Cycle() {
	s.agg.Cycle()
	s.mem.Cycle()
	s.aggBuf.Cycle()
	s.inputBuf.Cycle()
	s.outputBuf.Cycle()
	s.sparsifier.Cycle()
	s.sparsifyBuf.Cycle()
	s.mlp.Cycle()

	fired := s.runHandlers()
	s.CycleCount++

	if fired {
		s.idleCycles = 0
		s.deadlockEpisodes = 0
		return
	}
	s.idleCycles++
	if s.idleCycles >= deadlockWatchdogThreshold {
		s.log.WithFields(s.diagnosticFields()).Warn("deadlock watchdog: no handler fired for 200000 consecutive cycles")
		s.deadlockEpisodes++
		s.idleCycles = 0
		if s.deadlockEpisodes >= deadlockMaxEpisodes {
			panic(fmt.Sprintf("deadlock: no forward progress after %d watchdog episodes at cycle %d", s.deadlockEpisodes, s.CycleCount))
		}
	}
}

// Run drives the simulation to completion.
func (s *System) Run() {
	for !s.Finished() {
		s.Cycle()
	}
}

var handlers = []func(*System) bool{
	(*System).handleInputBufferAddTask,
	(*System).handleInputBufferToMem,
	(*System).handleMemToInputBuffer,
	(*System).handleStartAggregator,
	(*System).handleFinishAggregator,
	(*System).handleStartMlp,
	(*System).handleFinishMlp,
	(*System).handleStartSparsify,
	(*System).handleFinishSparsify,
	(*System).handleStartWriteback,
}

func (s *System) runHandlers() bool {
	for _, h := range handlers {
		if h(s) {
			return true
		}
	}
	return false
}

// H1: move the pending window into whichever input-buffer slot is
// Empty, so long as the system isn't mid layer-change.
func (s *System) handleInputBufferAddTask() bool {
	if s.State == SysChangedLayer {
		return false
	}
	if s.pendingWindow == nil {
		return false
	}
	if s.inputBuf.CurState == InputEmpty {
		s.inputBuf.CurWindow = s.pendingWindow
		s.inputBuf.CurState = InputWaitingToLoad
		s.advancePendingWindow()
		return true
	}
	if s.inputBuf.NextState == InputEmpty {
		s.inputBuf.NextWindow = s.pendingWindow
		s.inputBuf.NextState = InputWaitingToLoad
		s.advancePendingWindow()
		return true
	}
	return false
}

// H2: issue a read for any slot waiting to load, once memory has
// capacity.
func (s *System) handleInputBufferToMem() bool {
	try := func(state *InputBufState, window **InputWindow) bool {
		if *state != InputWaitingToLoad {
			return false
		}
		if !s.mem.Available() {
			return false
		}
		addrs := s.computeReadAddrs(*window)
		s.mem.Send((*window).ID, addrs, false)
		*state = InputLoading
		return true
	}
	if try(&s.inputBuf.CurState, &s.inputBuf.CurWindow) {
		return true
	}
	return try(&s.inputBuf.NextState, &s.inputBuf.NextWindow)
}

// H3: pop a completed memory request and mark the matching slot Ready.
func (s *System) handleMemToInputBuffer() bool {
	id, ok := s.mem.Pop()
	if !ok {
		return false
	}
	if s.inputBuf.CurState == InputLoading && s.inputBuf.CurWindow != nil && s.inputBuf.CurWindow.ID == id {
		s.inputBuf.CurState = InputReady
		return true
	}
	if s.inputBuf.NextState == InputLoading && s.inputBuf.NextWindow != nil && s.inputBuf.NextWindow.ID == id {
		s.inputBuf.NextState = InputReady
		return true
	}
	panic(fmt.Sprintf("memory interface returned completion for %s but no input-buffer slot was Loading it", id))
}

// H4: start the aggregator on a Ready input slot.
func (s *System) handleStartAggregator() bool {
	if s.inputBuf.CurState != InputReady {
		return false
	}
	if s.agg.State != AggIdle {
		return false
	}
	if !(s.aggBuf.CurState == AggEmpty || s.aggBuf.CurState == AggWriting) {
		return false
	}
	iw := s.inputBuf.CurWindow
	if err := s.agg.AddTask(iw, s.graph, s.inputFeatures, s.aggBuf.CurTemp, s.cfg.Mode); err != nil {
		panic(err)
	}
	s.aggBuf.CurWindow = iw.Output
	s.aggBuf.CurState = AggWriting
	s.inputBuf.CurState = InputReading
	return true
}

// H5: retire a Finished aggregator, freeing its input slot and
// marking the agg-buffer slot WaitingToMlp if this was the window's
// last contributing row.
func (s *System) handleFinishAggregator() bool {
	if s.agg.State != AggFinished {
		return false
	}
	s.agg.FinishedAggregation()
	iw := s.inputBuf.CurWindow
	s.inputBuf.CurState = InputEmpty
	s.inputBuf.CurWindow = nil
	if iw != nil && iw.IsLastRow {
		s.aggBuf.CurState = AggWaitingToMlp
	}
	return true
}

// H6: start the MLP unit once the agg-buffer's next slot has
// finished accumulating and the sparsify-buffer has room.
func (s *System) handleStartMlp() bool {
	if s.aggBuf.NextState != AggWaitingToMlp {
		return false
	}
	if s.mlp.State != MlpIdle {
		return false
	}
	if s.sparsifyBuf.CurState != SparsifyEmpty {
		return false
	}
	ow := s.aggBuf.NextWindow
	var temp *TempAggResult
	if s.cfg.Mode == Sparse {
		temp = s.aggBuf.NextTemp
	}
	s.mlp.StartMlp(ow, temp)
	s.sparsifyBuf.CurWindow = ow
	s.sparsifyBuf.CurState = SparsifyWriting
	s.aggBuf.NextState = AggMlp
	return true
}

// H7: retire a Finished MLP unit, clearing the agg-buffer's temp
// results for the window that just left.
func (s *System) handleFinishMlp() bool {
	if s.mlp.State != MlpFinished {
		return false
	}
	s.mlp.FinishedMlp()
	s.sparsifyBuf.CurState = SparsifyWaitingToSparsify
	if ow := s.aggBuf.NextWindow; ow != nil && s.aggBuf.NextTemp != nil {
		s.aggBuf.NextTemp.ClearRange(ow.StartOutput, ow.EndOutput)
	}
	s.aggBuf.NextState = AggEmpty
	s.aggBuf.NextWindow = nil
	return true
}

// H8: start the sparsifier once the sparsify-buffer's next slot is
// waiting and the output buffer has room.
func (s *System) handleStartSparsify() bool {
	if s.sparsifyBuf.NextState != SparsifyWaitingToSparsify {
		return false
	}
	if s.sparsifier.State != SparsifierIdle {
		return false
	}
	if s.outputBuf.CurState != OutputEmpty {
		return false
	}
	ow := s.sparsifyBuf.NextWindow
	if ow.FinalLayer {
		s.sparsifier.AddTaskLastLayer(ow.ID)
	} else {
		s.sparsifier.AddTask(ow.ID)
	}
	s.outputBuf.CurWindow = ow
	s.outputBuf.CurState = OutputWriting
	s.sparsifyBuf.NextState = SparsifySparsifying
	return true
}

// H9: the three-way handshake retiring a finished sparsify.
func (s *System) handleFinishSparsify() bool {
	if s.sparsifier.State != SparsifierIdle {
		return false
	}
	if s.sparsifyBuf.NextState != SparsifySparsifying {
		return false
	}
	if s.outputBuf.CurState != OutputWriting {
		return false
	}
	s.sparsifyBuf.NextState = SparsifyEmpty
	s.sparsifyBuf.NextWindow = nil
	s.outputBuf.CurState = OutputWaitingToWriteBack
	return true
}

// H10: issue the write-back for a completed output window, handling
// the final-window and final-layer special cases.
func (s *System) handleStartWriteback() bool {
	if s.outputBuf.NextState != OutputWaitingToWriteBack {
		return false
	}
	ow := s.outputBuf.NextWindow
	if !ow.FinalLayer {
		if !s.mem.Available() {
			return false
		}
		addrs := s.computeWriteAddrs(ow)
		s.mem.Send(ow.ID, addrs, true)
	}
	s.outputBuf.NextState = OutputEmpty
	s.outputBuf.NextWindow = nil

	if ow.FinalWindow {
		if ow.FinalLayer {
			s.State = SysFinished
		} else {
			s.State = SysChangedLayer
			nextLayer := s.curLayer + 1
			s.startLayer(nextLayer, s.initialFeature[nextLayer])
			s.State = SysWorking
		}
	}
	return true
}

// computeReadAddrs computes the 64-byte-aligned address range for an
// InputWindow's read. Sparse mode uses the input layer's actual
// start_addrs table; dense mode uses a fixed per-node stride with a
// per-layer base offset so layers never alias each other's address
// space.
func (s *System) computeReadAddrs(iw *InputWindow) []uint64 {
	if s.cfg.Mode == Dense {
		return s.denseAddrs(iw.StartInput, iw.EndInput, iw.Output.InputDim)
	}
	lo := s.inputFeatures.StartAddr(iw.StartInput)
	lo -= lo % 64
	hi := s.inputFeatures.StartAddr(iw.EndInput)
	return byteRangeAddrs(lo, hi)
}

// computeWriteAddrs computes the write-back address range for a
// finished OutputWindow. The sparsifier's exact retained index set
// isn't known until after the write completes in a real accelerator;
// this model uses the same fixed per-node stride as dense addressing
// for both modes, since the control plane counts cycles and never
// tracks feature content.
func (s *System) computeWriteAddrs(ow *OutputWindow) []uint64 {
	return s.denseAddrs(ow.StartOutput, ow.EndOutput, ow.OutputDim)
}

func (s *System) denseAddrs(startNode, endNode, dim int) []uint64 {
	base := uint64(s.curLayer) * denseLayerStride
	addrs := make([]uint64, 0, endNode-startNode)
	for idx := startNode; idx < endNode; idx++ {
		addr := base + uint64(idx*dim*4)
		addr -= addr % 64
		addrs = append(addrs, addr)
	}
	return addrs
}

func byteRangeAddrs(lo, hi int) []uint64 {
	if hi <= lo {
		return []uint64{uint64(lo)}
	}
	var addrs []uint64
	for a := lo; a < hi; a += 64 {
		addrs = append(addrs, uint64(a))
	}
	return addrs
}

// diagnosticFields builds the structured log fields for the deadlock
// watchdog's full component-state dump.
func (s *System) diagnosticFields() logrus.Fields {
	return logrus.Fields{
		"cycle":              s.CycleCount,
		"system_state":       s.State.String(),
		"layer":              s.curLayer,
		"aggregator_state":   s.agg.State,
		"mlp_state":          s.mlp.State,
		"sparsifier_state":   s.sparsifier.State,
		"input_buf_cur":      s.inputBuf.CurState,
		"input_buf_next":     s.inputBuf.NextState,
		"agg_buf_cur":        s.aggBuf.CurState,
		"agg_buf_next":       s.aggBuf.NextState,
		"sparsify_buf_cur":   s.sparsifyBuf.CurState,
		"sparsify_buf_next":  s.sparsifyBuf.NextState,
		"output_buf_cur":     s.outputBuf.CurState,
		"output_buf_next":    s.outputBuf.NextState,
		"mem_idle":           s.mem.Idle(),
		"pending_window_nil": s.pendingWindow == nil,
	}
}
