package accel

// SparsifierState is the sparsifier's own two-state machine: unlike
// the Aggregator and MLP unit, it has no separate Finished state;
// its own Cycle() flips it back to Idle the instant its count
// reaches zero, and the scheduler's H9 handler only needs to observe
// State == Idle to know the work completed.
type SparsifierState int

const (
	SparsifierIdle SparsifierState = iota
	SparsifierWorking
)

// SparsifierSettings configures the fixed per-window cost of
// sparsifying an intermediate layer's output.
type SparsifierSettings struct {
	FixedCycles int
}

const finalLayerSparsifyCycles = 1

// Sparsifier applies a sparsity mask to an MLP output window.
type Sparsifier struct {
	cfg SparsifierSettings

	State     SparsifierState
	Window    WindowId
	remaining int
}

func NewSparsifier(cfg SparsifierSettings) *Sparsifier {
	return &Sparsifier{cfg: cfg, State: SparsifierIdle}
}

// AddTask assigns window the configured fixed cycle cost.
func (s *Sparsifier) AddTask(window WindowId) {
	s.State = SparsifierWorking
	s.Window = window
	s.remaining = s.cfg.FixedCycles
}

// AddTaskLastLayer assigns window the final-layer cost: no
// sparsification is needed before the result leaves the pipeline.
func (s *Sparsifier) AddTaskLastLayer(window WindowId) {
	s.State = SparsifierWorking
	s.Window = window
	s.remaining = finalLayerSparsifyCycles
}

// Cycle advances the sparsifier's internal clock by one tick.
func (s *Sparsifier) Cycle() {
	if s.State == SparsifierWorking {
		if s.remaining > 0 {
			s.remaining--
		}
		if s.remaining == 0 {
			s.State = SparsifierIdle
		}
	}
}
