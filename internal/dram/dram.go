// Package dram provides a deterministic stand-in for the external DRAM
// timing oracle the accelerator simulator treats as an opaque
// collaborator. The real accelerator this simulator is modeled on
// binds to a native Ramulator wrapper unavailable to this module; this
// package implements the same five-operation ABI with a configurable
// fixed round-trip latency, loaded from the TOML file named by the
// top-level configuration's mem_config_name key.
package dram

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the DRAM timing model's own configuration file shape.
type Config struct {
	LatencyCycles int `toml:"latency_cycles"`
	QueueDepth    int `toml:"queue_depth"`
}

// DefaultConfig completes every request after a single cycle in
// flight.
func DefaultConfig() Config {
	return Config{LatencyCycles: 1, QueueDepth: 64}
}

// LoadConfig reads a DRAM timing configuration from path, starting
// from DefaultConfig and overriding only the keys present in the
// file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading dram config %q: %w", path, err)
	}
	return cfg, nil
}

type inFlight struct {
	addr      uint64
	isWrite   bool
	remaining int
}

// FixedLatencyModel is a reset-free, fixed-latency DRAM stand-in
// satisfying accel.Oracle: every accepted request occupies the queue
// for exactly LatencyCycles after it is sent, FIFO, regardless of
// address or read/write kind. Only read completions surface through
// Pop; a write retires silently once its latency elapses, freeing its
// queue slot.
type FixedLatencyModel struct {
	cfg    Config
	flight []inFlight
	ready  []uint64
}

// NewFixedLatencyModel constructs the model from cfg.
func NewFixedLatencyModel(cfg Config) *FixedLatencyModel {
	return &FixedLatencyModel{cfg: cfg}
}

// Available reports whether the model has room to accept another
// request; writes and reads share the same in-flight queue depth.
func (m *FixedLatencyModel) Available(addr uint64, isWrite bool) bool {
	return len(m.flight)+len(m.ready) < m.cfg.QueueDepth
}

// Send admits addr into the model, to complete LatencyCycles from
// now.
func (m *FixedLatencyModel) Send(addr uint64, isWrite bool) {
	latency := m.cfg.LatencyCycles
	if latency < 1 {
		latency = 1
	}
	m.flight = append(m.flight, inFlight{addr: addr, isWrite: isWrite, remaining: latency})
}

// RetAvailable reports whether a completed read is ready to pop.
func (m *FixedLatencyModel) RetAvailable() bool { return len(m.ready) > 0 }

// Pop removes and returns the oldest completed read address.
func (m *FixedLatencyModel) Pop() uint64 {
	addr := m.ready[0]
	m.ready = m.ready[1:]
	return addr
}

// Cycle advances every in-flight request's countdown by one tick.
// Reads that reach zero move into the ready queue in FIFO order;
// writes that reach zero retire silently.
func (m *FixedLatencyModel) Cycle() {
	if len(m.flight) == 0 {
		return
	}
	remaining := m.flight[:0]
	for _, f := range m.flight {
		f.remaining--
		if f.remaining <= 0 {
			if !f.isWrite {
				m.ready = append(m.ready, f.addr)
			}
		} else {
			remaining = append(remaining, f)
		}
	}
	m.flight = remaining
}
