package accel

import "fmt"

// WindowId names one unit of pipeline work. Ordering is strictly
// lexicographic over (LayerID, OutputID, InputID); the sliding window
// iterator emits windows in strictly increasing order.
type WindowId struct {
	LayerID  int
	OutputID int
	InputID  int
}

func (w WindowId) String() string {
	return fmt.Sprintf("L%d/O%d/I%d", w.LayerID, w.OutputID, w.InputID)
}

// Less reports whether w sorts strictly before o.
func (w WindowId) Less(o WindowId) bool {
	if w.LayerID != o.LayerID {
		return w.LayerID < o.LayerID
	}
	if w.OutputID != o.OutputID {
		return w.OutputID < o.OutputID
	}
	return w.InputID < o.InputID
}

// EdgeRange is a half-open range of edge-list positions within a
// node's sorted in-neighbor list, [Start, End).
type EdgeRange struct {
	Start int
	End   int
}

func (r EdgeRange) Empty() bool { return r.Start >= r.End }

// OutputWindow is an output-space tile. It is created once per outer
// (OutputWindowIterator) step and shared by every InputWindow that
// feeds it: many InputWindows reference the same OutputWindow.
type OutputWindow struct {
	ID          WindowId
	StartOutput int
	EndOutput   int
	InputDim    int
	OutputDim   int
	FinalWindow bool
	FinalLayer  bool
}

func (o *OutputWindow) Len() int { return o.EndOutput - o.StartOutput }

// InputWindow is an input-space tile tied to exactly one OutputWindow.
// EdgeRanges[j] gives the contribution of output node
// Output.StartOutput+j restricted to [StartInput, EndInput).
type InputWindow struct {
	ID         WindowId
	Output     *OutputWindow
	StartInput int
	EndInput   int
	EdgeRanges []EdgeRange
	IsLastRow  bool
}

func (w *InputWindow) Len() int { return w.EndInput - w.StartInput }
