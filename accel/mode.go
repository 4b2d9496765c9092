package accel

import "fmt"

// RunningMode selects how the Aggregator and MLP unit account for
// cycles: Sparse treats features as index sets (set-union
// aggregation, sparse systolic reduction); Dense treats them as full
// vectors (dense systolic multiply); Mixed is reserved: its
// unpack-phase cycle formula has never been defined, so it is
// rejected explicitly with ErrUnsupportedMode (by the CLI before the
// run starts, and by Aggregator.AddTask) rather than guessed. Config
// validation itself accepts it.
type RunningMode int

const (
	Sparse RunningMode = iota
	Dense
	Mixed
)

func (m RunningMode) String() string {
	switch m {
	case Sparse:
		return "Sparse"
	case Dense:
		return "Dense"
	case Mixed:
		return "Mixed"
	default:
		return fmt.Sprintf("RunningMode(%d)", int(m))
	}
}

// ErrUnsupportedMode is returned wherever Mixed running mode would
// need cycle accounting that has never been defined.
var ErrUnsupportedMode = fmt.Errorf("unsupported running mode: Mixed has no defined cycle formula")

// ParseRunningMode converts a config string ("Sparse"/"Dense"/"Mixed")
// into a RunningMode.
func ParseRunningMode(s string) (RunningMode, error) {
	switch s {
	case "Sparse":
		return Sparse, nil
	case "Dense":
		return Dense, nil
	case "Mixed":
		return Mixed, nil
	default:
		return 0, fmt.Errorf("invalid running_mode %q, want Sparse, Dense, or Mixed", s)
	}
}
