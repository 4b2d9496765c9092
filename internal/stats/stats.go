// Package stats emits the simulator's run statistics as a JSON
// document pairing an echo of the effective settings with the
// terminal cycle count and wall-clock duration of the run.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/rfielding/gcn-accel-sim/internal/config"
)

// Statistics is the terminal per-run result.
type Statistics struct {
	Cycle          uint64 `json:"cycle"`
	SimulationTime string `json:"simulation_time"`
}

// Result is the full output document: an echo of the settings used
// plus the run's statistics, stamped with a RunID so repeated runs
// against the same inputs remain distinguishable in their output
// documents.
type Result struct {
	RunID    string          `json:"run_id"`
	Settings config.Settings `json:"settings"`
	Stats    Statistics      `json:"stats"`
}

// NewResult builds a Result for one completed run.
func NewResult(settings config.Settings, cycle uint64, simulationTime string) Result {
	return Result{
		RunID:    uuid.NewString(),
		Settings: settings,
		Stats:    Statistics{Cycle: cycle, SimulationTime: simulationTime},
	}
}

// Write serializes r to <dir>/<timestamp>.json, creating dir if
// necessary, and returns the path written.
func Write(dir string, timestamp string, r Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %q: %w", dir, err)
	}
	path := filepath.Join(dir, timestamp+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating output file %q: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("writing output file %q: %w", path, err)
	}
	return path, nil
}
