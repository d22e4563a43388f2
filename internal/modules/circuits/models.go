// Package circuits ties the simulation pipeline together: request models,
// the cached simulate/measure service, persistence and export.
package circuits

import (
	"time"

	"github.com/aristath/blochd/internal/modules/engine"
)

// SimulateRequest is the wire form of a simulation call.
type SimulateRequest struct {
	QubitCount  int                 `json:"qubit_count"`
	Gates       []engine.Gate       `json:"gates"`
	FocusQubit  *int                `json:"focus_qubit,omitempty"`
	GlobalPhase *float64            `json:"global_phase,omitempty"`
	Noise       *engine.NoiseConfig `json:"noise,omitempty"`
}

// Circuit converts the request to the domain form.
func (r SimulateRequest) Circuit() engine.Circuit {
	return engine.Circuit{
		QubitCount:  r.QubitCount,
		Gates:       r.Gates,
		GlobalPhase: r.GlobalPhase,
	}
}

// Focus returns the requested focus qubit clamped into range. A missing value
// defaults to qubit 0.
func (r SimulateRequest) Focus() int {
	if r.FocusQubit == nil {
		return 0
	}
	f := *r.FocusQubit
	if f < 0 {
		return 0
	}
	if r.QubitCount > 0 && f >= r.QubitCount {
		return r.QubitCount - 1
	}
	return f
}

// MeasureRequest extends a simulation call with sampling parameters. A nil
// Step samples the final snapshot; a nil Shots uses the configured default.
type MeasureRequest struct {
	SimulateRequest
	Basis string `json:"basis"`
	Shots *int   `json:"shots,omitempty"`
	Seed  *int64 `json:"seed,omitempty"`
	Step  *int   `json:"step,omitempty"`
}

// SavedCircuit is a persisted circuit definition, optionally with its last
// computed snapshot sequence.
type SavedCircuit struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	QubitCount  int                 `json:"qubit_count"`
	Gates       []engine.Gate       `json:"gates"`
	Noise       *engine.NoiseConfig `json:"noise,omitempty"`
	FocusQubit  int                 `json:"focus_qubit"`
	GlobalPhase *float64            `json:"global_phase,omitempty"`
	Snapshots   []engine.Snapshot   `json:"snapshots,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Request rebuilds the simulation request stored with the circuit.
func (s SavedCircuit) Request() SimulateRequest {
	focus := s.FocusQubit
	return SimulateRequest{
		QubitCount:  s.QubitCount,
		Gates:       s.Gates,
		FocusQubit:  &focus,
		GlobalPhase: s.GlobalPhase,
		Noise:       s.Noise,
	}
}
