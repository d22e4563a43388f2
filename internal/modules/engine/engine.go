// Package engine implements the quantum state simulation pipeline: gate
// application on a statevector or density matrix, Kraus-operator noise
// channels, partial trace down to a focus qubit, and Bloch vector extraction.
package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// invariantTol bounds the acceptable drift of the statevector norm or
// density matrix trace before a run is declared internally inconsistent.
const invariantTol = 1e-6

// Config holds simulator resource bounds.
type Config struct {
	MaxQubits int
	MaxGates  int
}

// Simulator evolves circuits step by step and emits one Snapshot per step.
// It is stateless between calls and safe for concurrent use.
type Simulator struct {
	maxQubits int
	maxGates  int
	log       zerolog.Logger
}

// New creates a new simulator with the given resource bounds.
func New(cfg Config, log zerolog.Logger) *Simulator {
	return &Simulator{
		maxQubits: cfg.MaxQubits,
		maxGates:  cfg.MaxGates,
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// Validate checks a request against the vocabulary, index ranges and
// resource bounds without running it.
func (s *Simulator) Validate(c Circuit, noise *NoiseConfig, focusQubit int) error {
	if c.QubitCount < 1 {
		return fmt.Errorf("%w: qubit_count must be positive, got %d", ErrInvalidParameters, c.QubitCount)
	}
	if c.QubitCount > s.maxQubits {
		return fmt.Errorf("%w: qubit_count %d exceeds supported maximum %d",
			ErrResourceLimitExceeded, c.QubitCount, s.maxQubits)
	}
	if len(c.Gates) > s.maxGates {
		return fmt.Errorf("%w: %d gates exceed supported maximum %d",
			ErrResourceLimitExceeded, len(c.Gates), s.maxGates)
	}
	if focusQubit < 0 || focusQubit >= c.QubitCount {
		return fmt.Errorf("%w: focus qubit %d (qubit_count %d)", ErrIndexOutOfRange, focusQubit, c.QubitCount)
	}
	for _, g := range c.Gates {
		if err := g.Validate(c.QubitCount); err != nil {
			return err
		}
	}
	return noise.Validate()
}

// Simulate runs the full pipeline and returns one Snapshot per step, with the
// initial |0...0> state as step 0. The returned sequence is never partially
// populated: any error aborts the run.
func (s *Simulator) Simulate(c Circuit, noise *NoiseConfig, focusQubit int) ([]Snapshot, error) {
	if err := s.Validate(c, noise, focusQubit); err != nil {
		return nil, err
	}

	state := NewState(c.QubitCount)
	if c.GlobalPhase != nil {
		state.ApplyGlobalPhase(*c.GlobalPhase)
	}

	snapshots := make([]Snapshot, 0, len(c.Gates)+1)
	snap, err := s.buildSnapshot(state, 0, focusQubit, c.GlobalPhase, map[string]string{"gate": "INIT"})
	if err != nil {
		return nil, err
	}
	snapshots = append(snapshots, snap)

	for idx, g := range c.Gates {
		if err := s.applyGate(state, g, noise); err != nil {
			return nil, err
		}
		if err := state.CheckInvariants(invariantTol); err != nil {
			s.log.Error().Err(err).Int("step", idx+1).Str("gate", g.Name).Msg("State invariant violated")
			return nil, err
		}

		snap, err := s.buildSnapshot(state, idx+1, focusQubit, c.GlobalPhase, stepMetadata(g))
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// applyGate evolves the state by one instruction and, when global noise is
// configured, runs the noise channels over the gate's touched qubits.
func (s *Simulator) applyGate(state *State, g Gate, noise *NoiseConfig) error {
	kind, err := g.Kind()
	if err != nil {
		return err
	}

	switch kind {
	case KindUnitary, KindRotation:
		u := g.unitary()
		for _, q := range g.Targets {
			state.ApplyUnitary(u, q, g.Controls)
		}
	case KindControlled:
		state.ApplyUnitary(g.unitary(), g.Targets[0], g.Controls)
	case KindReset:
		for _, q := range g.Targets {
			state.ApplyKraus(resetKraus, q)
		}
	case KindNoise:
		// Inline channels act at their sequence position, independent of the
		// global noise configuration.
		for _, q := range g.Targets {
			state.ApplyKraus(channelKraus(g.Name, g.Parameters[0]), q)
		}
	case KindMarker:
		// Measurement annotations carry metadata only.
		return nil
	}

	if noise.Enabled() {
		s.applyGlobalNoise(state, g.touched(), noise)
	}
	return nil
}

// applyGlobalNoise runs the configured channels on each touched qubit, in the
// fixed order depolarizing -> amplitude damping -> phase damping.
func (s *Simulator) applyGlobalNoise(state *State, qubits []int, noise *NoiseConfig) {
	for _, q := range qubits {
		if p := noise.Depolarizing; p != nil && *p > 0 {
			state.ApplyKraus(depolarizingKraus(*p), q)
		}
		if p := noise.AmplitudeDamping; p != nil && *p > 0 {
			state.ApplyKraus(amplitudeDampingKraus(*p), q)
		}
		if p := noise.PhaseDamping; p != nil && *p > 0 {
			state.ApplyKraus(phaseDampingKraus(*p), q)
		}
	}
}

// buildSnapshot reduces the state to the focus qubit and packages the
// visualization quantities for one step.
func (s *Simulator) buildSnapshot(state *State, step, focusQubit int, globalPhase *float64, metadata map[string]string) (Snapshot, error) {
	reduced, err := state.ReducedDensity(focusQubit)
	if err != nil {
		return Snapshot{}, err
	}

	bloch := extractBloch(reduced)
	return Snapshot{
		Step:          step,
		Bloch:         bloch,
		Probabilities: state.Probabilities(),
		GlobalPhase:   globalPhase,
		Purity:        purity(reduced),
		Radius:        bloch.Radius(),
		FocusQubit:    focusQubit,
		Metadata:      metadata,
	}, nil
}

func stepMetadata(g Gate) map[string]string {
	md := map[string]string{
		"gate":    g.Name,
		"targets": joinInts(g.Targets),
	}
	if len(g.Controls) > 0 {
		md["controls"] = joinInts(g.Controls)
	}
	return md
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
