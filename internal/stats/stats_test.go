package stats_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfielding/gcn-accel-sim/internal/config"
	"github.com/rfielding/gcn-accel-sim/internal/stats"
)

func TestWriteEmitsSettingsAndStats(t *testing.T) {
	settings := config.Default()
	settings.Description = "unit test run"
	result := stats.NewResult(settings, 45, "1.5ms")
	require.NotEmpty(t, result.RunID)

	dir := filepath.Join(t.TempDir(), "output")
	path, err := stats.Write(dir, "20260801T000000.000000000", result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260801T000000.000000000.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		RunID    string `json:"run_id"`
		Settings struct {
			Description string `json:"description"`
		} `json:"settings"`
		Stats struct {
			Cycle          uint64 `json:"cycle"`
			SimulationTime string `json:"simulation_time"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, result.RunID, doc.RunID)
	assert.Equal(t, "unit test run", doc.Settings.Description)
	assert.Equal(t, uint64(45), doc.Stats.Cycle)
	assert.Equal(t, "1.5ms", doc.Stats.SimulationTime)
}

func TestNewResultStampsDistinctRunIDs(t *testing.T) {
	a := stats.NewResult(config.Default(), 1, "1ms")
	b := stats.NewResult(config.Default(), 1, "1ms")
	assert.NotEqual(t, a.RunID, b.RunID)
}
