// Package config loads and validates the simulator's TOML settings.
// Configuration is layered: a built-in default is decoded first, then
// each CLI-supplied path is decoded over it in turn, so a later
// file's present keys override an earlier file's without needing to
// repeat every key.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// AcceleratorSettings holds the buffer sizing, layer shape, running
// mode, and memory-queue knobs of the simulated accelerator.
type AcceleratorSettings struct {
	InputBufferSize int    `toml:"input_buffer_size" json:"input_buffer_size"`
	AggBufferSize   int    `toml:"agg_buffer_size" json:"agg_buffer_size"`
	GcnHiddenSize   []int  `toml:"gcn_hidden_size" json:"gcn_hidden_size"`
	RunningMode     string `toml:"running_mode" json:"running_mode"`
	MemConfigName   string `toml:"mem_config_name" json:"mem_config_name"`
	MemSendQueue    int    `toml:"mem_send_queue_size" json:"mem_send_queue_size"`
	MemRecvQueue    int    `toml:"mem_recv_queue_size" json:"mem_recv_queue_size"`
}

type AggregatorSettings struct {
	SparseCores int `toml:"sparse_cores" json:"sparse_cores"`
	SparseWidth int `toml:"sparse_width" json:"sparse_width"`
	DenseCores  int `toml:"dense_cores" json:"dense_cores"`
	DenseWidth  int `toml:"dense_width" json:"dense_width"`
}

type MLPSettings struct {
	SystolicRows   int `toml:"systolic_rows" json:"systolic_rows"`
	SystolicCols   int `toml:"systolic_cols" json:"systolic_cols"`
	MlpSparseCores int `toml:"mlp_sparse_cores" json:"mlp_sparse_cores"`
}

type SparsifierSettings struct {
	SparsifierCores int `toml:"sparsifier_cores" json:"sparsifier_cores"`
	FixedCycles     int `toml:"fixed_cycles" json:"fixed_cycles"`
}

// Settings is the full, merged configuration for one simulation run.
type Settings struct {
	Description         string              `toml:"description" json:"description"`
	GraphPath           string              `toml:"graph_path" json:"graph_path"`
	FeaturesPaths       []string            `toml:"features_paths" json:"features_paths"`
	AcceleratorSettings AcceleratorSettings `toml:"accelerator_settings" json:"accelerator_settings"`
	AggregatorSettings  AggregatorSettings  `toml:"aggregator_settings" json:"aggregator_settings"`
	MLPSettings         MLPSettings         `toml:"mlp_settings" json:"mlp_settings"`
	SparsifierSettings  SparsifierSettings  `toml:"sparsifier_settings" json:"sparsifier_settings"`
}

// Default returns the built-in configuration always loaded first: 1
// sparse core, 1 sparse width, 1 dense core, 1 dense width,
// input_buffer_size = 64, agg_buffer_size = 64, hidden_size = [2],
// systolic 2x2 with 2 sparse MLP cores, 1 sparsifier core.
func Default() Settings {
	return Settings{
		Description: "default accelerator configuration",
		AcceleratorSettings: AcceleratorSettings{
			InputBufferSize: 64,
			AggBufferSize:   64,
			GcnHiddenSize:   []int{2},
			RunningMode:     "Sparse",
			MemSendQueue:    16,
			MemRecvQueue:    16,
		},
		AggregatorSettings: AggregatorSettings{
			SparseCores: 1,
			SparseWidth: 1,
			DenseCores:  1,
			DenseWidth:  1,
		},
		MLPSettings: MLPSettings{
			SystolicRows:   2,
			SystolicCols:   2,
			MlpSparseCores: 2,
		},
		SparsifierSettings: SparsifierSettings{
			SparsifierCores: 1,
			FixedCycles:     10,
		},
	}
}

// Load starts from Default() and decodes each path in paths over it
// in order; later files override earlier ones, matching the CLI's
// "later files override earlier" contract.
func Load(paths []string) (Settings, error) {
	settings := Default()
	for _, p := range paths {
		if _, err := toml.DecodeFile(p, &settings); err != nil {
			return Settings{}, fmt.Errorf("loading config %q: %w", p, err)
		}
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks the cross-field invariant between the feature file
// list and the layer stack: one feature file for the input layer plus
// one per hidden layer.
func (s Settings) Validate() error {
	want := len(s.AcceleratorSettings.GcnHiddenSize) + 1
	if len(s.FeaturesPaths) != want {
		return fmt.Errorf("config: len(features_paths) == %d, want len(gcn_hidden_size)+1 == %d", len(s.FeaturesPaths), want)
	}
	switch s.AcceleratorSettings.RunningMode {
	case "Sparse", "Dense", "Mixed":
	default:
		return fmt.Errorf("config: invalid accelerator_settings.running_mode %q", s.AcceleratorSettings.RunningMode)
	}
	return nil
}
