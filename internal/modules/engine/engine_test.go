package engine

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSimulator() *Simulator {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return New(Config{MaxQubits: 8, MaxGates: 256}, log)
}

func floatPtr(v float64) *float64 { return &v }

func TestSimulateEmptyCircuit(t *testing.T) {
	sim := testSimulator()

	snaps, err := sim.Simulate(Circuit{QubitCount: 1}, nil, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	// |0> sits at the north pole
	assert.InDelta(t, 0.0, snaps[0].Bloch.X, 1e-12)
	assert.InDelta(t, 0.0, snaps[0].Bloch.Y, 1e-12)
	assert.InDelta(t, 1.0, snaps[0].Bloch.Z, 1e-12)
	assert.InDelta(t, 1.0, snaps[0].Purity, 1e-12)
	assert.Equal(t, "INIT", snaps[0].Metadata["gate"])
}

func TestHadamardMovesToPlusX(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "H", Targets: []int{0}}},
	}

	snaps, err := sim.Simulate(circuit, nil, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	final := snaps[1]
	assert.InDelta(t, 1.0, final.Bloch.X, 1e-9)
	assert.InDelta(t, 0.0, final.Bloch.Y, 1e-9)
	assert.InDelta(t, 0.0, final.Bloch.Z, 1e-9)
	assert.InDelta(t, 0.5, final.Probabilities[0], 1e-9)
	assert.InDelta(t, 0.5, final.Probabilities[1], 1e-9)
}

func TestXThenResetReturnsToZero(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 1,
		Gates: []Gate{
			{Name: "X", Targets: []int{0}},
			{Name: "RESET", Targets: []int{0}},
		},
	}

	snaps, err := sim.Simulate(circuit, nil, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	afterX := snaps[1]
	assert.InDelta(t, -1.0, afterX.Bloch.Z, 1e-9)

	final := snaps[2]
	assert.InDelta(t, 0.0, final.Bloch.X, 1e-9)
	assert.InDelta(t, 0.0, final.Bloch.Y, 1e-9)
	assert.InDelta(t, 1.0, final.Bloch.Z, 1e-9)
	assert.InDelta(t, 1.0, final.Probabilities[0], 1e-9)
}

func TestRotationGates(t *testing.T) {
	sim := testSimulator()

	// RX(pi) flips |0> to |1>
	snaps, err := sim.Simulate(Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "RX", Targets: []int{0}, Parameters: []float64{math.Pi}}},
	}, nil, 0)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, snaps[1].Bloch.Z, 1e-9)

	// RY(pi/2) rotates |0> to |+>
	snaps, err = sim.Simulate(Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "RY", Targets: []int{0}, Parameters: []float64{math.Pi / 2}}},
	}, nil, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, snaps[1].Bloch.X, 1e-9)

	// H then P(pi/2) lands on +Y
	snaps, err = sim.Simulate(Circuit{
		QubitCount: 1,
		Gates: []Gate{
			{Name: "H", Targets: []int{0}},
			{Name: "P", Targets: []int{0}, Parameters: []float64{math.Pi / 2}},
		},
	}, nil, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, snaps[2].Bloch.X, 1e-9)
	assert.InDelta(t, 1.0, snaps[2].Bloch.Y, 1e-9)
}

func TestBellStateEntanglement(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 2,
		Gates: []Gate{
			{Name: "H", Targets: []int{0}},
			{Name: "CX", Targets: []int{1}, Controls: []int{0}},
		},
	}

	snaps, err := sim.Simulate(circuit, nil, 0)
	require.NoError(t, err)
	final := snaps[2]

	// (|00> + |11>)/sqrt(2): only the matching basis states are populated
	require.Len(t, final.Probabilities, 4)
	assert.InDelta(t, 0.5, final.Probabilities[0], 1e-9)
	assert.InDelta(t, 0.0, final.Probabilities[1], 1e-9)
	assert.InDelta(t, 0.0, final.Probabilities[2], 1e-9)
	assert.InDelta(t, 0.5, final.Probabilities[3], 1e-9)

	// The reduced focus qubit is maximally mixed
	assert.InDelta(t, 0.0, final.Radius, 1e-9)
	assert.InDelta(t, 0.5, final.Purity, 1e-9)

	var norm float64
	for _, p := range final.Probabilities {
		norm += p
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestControlledZFlipsPhase(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 2,
		Gates: []Gate{
			{Name: "X", Targets: []int{0}},
			{Name: "H", Targets: []int{1}},
			{Name: "CZ", Targets: []int{1}, Controls: []int{0}},
		},
	}

	snaps, err := sim.Simulate(circuit, nil, 1)
	require.NoError(t, err)

	// With the control at |1>, CZ turns |+> into |-> on the target
	final := snaps[3]
	assert.InDelta(t, -1.0, final.Bloch.X, 1e-9)
}

func TestPurityMatchesRadiusRelation(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 1,
		Gates: []Gate{
			{Name: "H", Targets: []int{0}},
			{Name: "RZ", Targets: []int{0}, Parameters: []float64{0.7}},
			{Name: "RY", Targets: []int{0}, Parameters: []float64{1.3}},
		},
	}
	noise := &NoiseConfig{Depolarizing: floatPtr(0.2)}

	snaps, err := sim.Simulate(circuit, noise, 0)
	require.NoError(t, err)

	for _, snap := range snaps {
		expected := (1 + snap.Radius*snap.Radius) / 2
		assert.InDelta(t, expected, snap.Purity, 1e-9, "step %d", snap.Step)
	}
}

func TestFullDepolarizingErasesBlochVector(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "H", Targets: []int{0}}},
	}
	noise := &NoiseConfig{Depolarizing: floatPtr(1.0)}

	snaps, err := sim.Simulate(circuit, noise, 0)
	require.NoError(t, err)

	final := snaps[1]
	assert.InDelta(t, 0.0, final.Bloch.X, 1e-9)
	assert.InDelta(t, 0.0, final.Bloch.Y, 1e-9)
	assert.InDelta(t, 0.0, final.Bloch.Z, 1e-9)
	assert.InDelta(t, 0.5, final.Purity, 1e-9)
}

func TestAmplitudeDampingBiasesTowardZero(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "X", Targets: []int{0}}},
	}
	noise := &NoiseConfig{AmplitudeDamping: floatPtr(1.0)}

	snaps, err := sim.Simulate(circuit, noise, 0)
	require.NoError(t, err)

	// Full damping relaxes |1> straight back to |0>
	final := snaps[1]
	assert.InDelta(t, 1.0, final.Bloch.Z, 1e-9)
}

func TestPhaseDampingKillsCoherence(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "H", Targets: []int{0}}},
	}
	noise := &NoiseConfig{PhaseDamping: floatPtr(1.0)}

	snaps, err := sim.Simulate(circuit, noise, 0)
	require.NoError(t, err)

	final := snaps[1]
	assert.InDelta(t, 0.0, final.Bloch.X, 1e-9)
	assert.InDelta(t, 0.0, final.Bloch.Y, 1e-9)
	// Populations survive phase damping
	assert.InDelta(t, 0.5, final.Probabilities[0], 1e-9)
	assert.InDelta(t, 0.5, final.Probabilities[1], 1e-9)
}

func TestInlineNoiseGate(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 1,
		Gates: []Gate{
			{Name: "H", Targets: []int{0}},
			{Name: "DEPOLARIZING", Targets: []int{0}, Parameters: []float64{1.0}},
		},
	}

	snaps, err := sim.Simulate(circuit, nil, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.InDelta(t, 1.0, snaps[1].Bloch.X, 1e-9)
	assert.InDelta(t, 0.0, snaps[2].Radius, 1e-9)
}

func TestMeasurementMarkerLeavesStateUnchanged(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 1,
		Gates: []Gate{
			{Name: "H", Targets: []int{0}},
			{Name: "MEASURE_Z", Targets: []int{0}},
		},
	}

	snaps, err := sim.Simulate(circuit, nil, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.InDelta(t, snaps[1].Bloch.X, snaps[2].Bloch.X, 1e-12)
	assert.Equal(t, "MEASURE_Z", snaps[2].Metadata["gate"])
}

func TestGlobalPhaseDoesNotMoveBlochVector(t *testing.T) {
	sim := testSimulator()
	phase := 1.234
	circuit := Circuit{
		QubitCount:  1,
		GlobalPhase: &phase,
		Gates:       []Gate{{Name: "H", Targets: []int{0}}},
	}

	snaps, err := sim.Simulate(circuit, nil, 0)
	require.NoError(t, err)

	final := snaps[1]
	assert.InDelta(t, 1.0, final.Bloch.X, 1e-9)
	require.NotNil(t, final.GlobalPhase)
	assert.Equal(t, phase, *final.GlobalPhase)
}

func TestStatevectorNormPreserved(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 3,
		Gates: []Gate{
			{Name: "H", Targets: []int{0}},
			{Name: "CX", Targets: []int{1}, Controls: []int{0}},
			{Name: "RY", Targets: []int{2}, Parameters: []float64{0.4}},
			{Name: "CZ", Targets: []int{2}, Controls: []int{1}},
			{Name: "RZ", Targets: []int{0}, Parameters: []float64{2.1}},
		},
	}

	snaps, err := sim.Simulate(circuit, nil, 1)
	require.NoError(t, err)

	for _, snap := range snaps {
		var norm float64
		for _, p := range snap.Probabilities {
			norm += p
		}
		assert.InDelta(t, 1.0, norm, 1e-9, "step %d", snap.Step)
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	sim := testSimulator()
	circuit := Circuit{
		QubitCount: 2,
		Gates: []Gate{
			{Name: "H", Targets: []int{0}},
			{Name: "CX", Targets: []int{1}, Controls: []int{0}},
		},
	}
	noise := &NoiseConfig{PhaseDamping: floatPtr(0.1)}

	first, err := sim.Simulate(circuit, noise, 0)
	require.NoError(t, err)
	second, err := sim.Simulate(circuit, noise, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidationErrors(t *testing.T) {
	sim := testSimulator()

	_, err := sim.Simulate(Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "BOGUS", Targets: []int{0}}},
	}, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidGate)

	_, err = sim.Simulate(Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "X", Targets: []int{3}}},
	}, nil, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = sim.Simulate(Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "RX", Targets: []int{0}}},
	}, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = sim.Simulate(Circuit{
		QubitCount: 2,
		Gates:      []Gate{{Name: "CX", Targets: []int{0}}},
	}, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = sim.Simulate(Circuit{
		QubitCount: 1,
		Gates:      []Gate{{Name: "H", Targets: []int{0}}},
	}, &NoiseConfig{Depolarizing: floatPtr(1.5)}, 0)
	assert.ErrorIs(t, err, ErrInvalidNoiseParameter)

	_, err = sim.Simulate(Circuit{QubitCount: 2}, nil, 5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestResourceLimits(t *testing.T) {
	sim := testSimulator()

	_, err := sim.Simulate(Circuit{QubitCount: 9}, nil, 0)
	assert.ErrorIs(t, err, ErrResourceLimitExceeded)

	gates := make([]Gate, 257)
	for i := range gates {
		gates[i] = Gate{Name: "I", Targets: []int{0}}
	}
	_, err = sim.Simulate(Circuit{QubitCount: 1, Gates: gates}, nil, 0)
	assert.ErrorIs(t, err, ErrResourceLimitExceeded)
}
