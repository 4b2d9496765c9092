package accel

// Each stage boundary instantiates the same two-slot pattern: a
// `Cur` (producer) slot and a `Next` (consumer) slot, each carrying
// its own stage-specific state. The only implicit mutation is the
// cycle-boundary rotation performed by Cycle(); every other
// transition is made by a handler in system.go. The handlers gate
// each transition on the states they read and otherwise leave the
// buffer alone; they do not verify the prior state of a slot they
// retire (H5 and H7 overwrite it directly), and only H3 panics on an
// unexpected slot state.
//
// Three of the four buffers rotate when Cur reaches its waiting
// state and Next is Empty (produce-pushed). The input buffer is the
// exception: it rotates whenever Cur is Empty and Next is non-Empty
// (demand-pulled), since aggregation can only read from Cur. Do not
// unify the two conditions.

type InputBufState int

const (
	InputEmpty InputBufState = iota
	InputWaitingToLoad
	InputLoading
	InputReady
	InputReading
)

// InputBuffer is the stage boundary feeding the Aggregator.
type InputBuffer struct {
	CurState  InputBufState
	CurWindow *InputWindow

	NextState  InputBufState
	NextWindow *InputWindow
}

// Cycle rotates the buffer when demand-pulled: Cur is drained
// (Empty) and Next already holds a loaded window.
func (b *InputBuffer) Cycle() {
	if b.CurState == InputEmpty && b.NextState != InputEmpty {
		b.CurState, b.NextState = b.NextState, b.CurState
		b.CurWindow, b.NextWindow = b.NextWindow, b.CurWindow
	}
}

type AggBufState int

const (
	AggEmpty AggBufState = iota
	AggWriting
	AggWaitingToMlp
	AggMlp
)

// AggBuffer is the stage boundary between the Aggregator and the MLP
// unit. Each slot owns a TempAggResult accumulating sparse partial
// sums for the window currently assigned to it.
type AggBuffer struct {
	CurState  AggBufState
	CurWindow *OutputWindow
	CurTemp   *TempAggResult

	NextState  AggBufState
	NextWindow *OutputWindow
	NextTemp   *TempAggResult
}

func (b *AggBuffer) Cycle() {
	if b.CurState == AggWaitingToMlp && b.NextState == AggEmpty {
		b.CurState, b.NextState = b.NextState, b.CurState
		b.CurWindow, b.NextWindow = b.NextWindow, b.CurWindow
		b.CurTemp, b.NextTemp = b.NextTemp, b.CurTemp
	}
}

type SparsifyBufState int

const (
	SparsifyEmpty SparsifyBufState = iota
	SparsifyWriting
	SparsifyWaitingToSparsify
	SparsifySparsifying
)

// SparsifyBuffer is the stage boundary between the MLP unit and the
// Sparsifier.
type SparsifyBuffer struct {
	CurState  SparsifyBufState
	CurWindow *OutputWindow

	NextState  SparsifyBufState
	NextWindow *OutputWindow
}

func (b *SparsifyBuffer) Cycle() {
	if b.CurState == SparsifyWaitingToSparsify && b.NextState == SparsifyEmpty {
		b.CurState, b.NextState = b.NextState, b.CurState
		b.CurWindow, b.NextWindow = b.NextWindow, b.CurWindow
	}
}

type OutputBufState int

const (
	OutputEmpty OutputBufState = iota
	OutputWriting
	OutputWaitingToWriteBack
)

// OutputBuffer is the stage boundary between the Sparsifier and
// write-back to memory.
type OutputBuffer struct {
	CurState  OutputBufState
	CurWindow *OutputWindow

	NextState  OutputBufState
	NextWindow *OutputWindow
}

func (b *OutputBuffer) Cycle() {
	if b.CurState == OutputWaitingToWriteBack && b.NextState == OutputEmpty {
		b.CurState, b.NextState = b.NextState, b.CurState
		b.CurWindow, b.NextWindow = b.NextWindow, b.CurWindow
	}
}
