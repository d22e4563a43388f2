package circuits

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/blochd/internal/modules/engine"
	"github.com/aristath/blochd/internal/modules/measurement"
	"github.com/aristath/blochd/internal/modules/snapshots"
)

func testService(t *testing.T) *Service {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	sim := engine.New(engine.Config{MaxQubits: 8, MaxGates: 256}, log)
	cache := snapshots.NewCache(16, log)
	sampler := measurement.NewSampler(4096, log)
	return NewService(sim, cache, sampler, 1024, log)
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func hadamardRequest() SimulateRequest {
	return SimulateRequest{
		QubitCount: 1,
		Gates:      []engine.Gate{{Name: "H", Targets: []int{0}}},
	}
}

func TestSimulateServesFromCache(t *testing.T) {
	svc := testService(t)
	req := hadamardRequest()

	first, err := svc.Simulate(req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, first.Snapshots, 2)

	second, err := svc.Simulate(req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Snapshots, second.Snapshots)

	stats := svc.CacheStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestFocusDefaultsAndClamps(t *testing.T) {
	req := SimulateRequest{QubitCount: 3}
	assert.Equal(t, 0, req.Focus())

	req.FocusQubit = intPtr(2)
	assert.Equal(t, 2, req.Focus())

	req.FocusQubit = intPtr(7)
	assert.Equal(t, 2, req.Focus())

	req.FocusQubit = intPtr(-1)
	assert.Equal(t, 0, req.Focus())
}

func TestSimulateRejectsInvalidCircuit(t *testing.T) {
	svc := testService(t)

	_, err := svc.Simulate(SimulateRequest{
		QubitCount: 1,
		Gates:      []engine.Gate{{Name: "BOGUS", Targets: []int{0}}},
	})
	assert.ErrorIs(t, err, engine.ErrInvalidGate)
	assert.Equal(t, 0, svc.cache.Len(), "failed runs must not be cached")
}

func TestMeasureSamplesFinalStepByDefault(t *testing.T) {
	svc := testService(t)

	// X leaves the qubit in |1>, a -Z eigenstate.
	result, err := svc.Measure(MeasureRequest{
		SimulateRequest: SimulateRequest{
			QubitCount: 1,
			Gates:      []engine.Gate{{Name: "X", Targets: []int{0}}},
		},
		Basis: "z",
		Shots: intPtr(200),
		Seed:  int64Ptr(5),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Step)
	assert.Equal(t, 200, result.Counts[measurement.SymbolMinus])
	assert.Equal(t, 0, result.Counts[measurement.SymbolPlus])
}

func TestMeasureAtExplicitStep(t *testing.T) {
	svc := testService(t)
	req := MeasureRequest{
		SimulateRequest: SimulateRequest{
			QubitCount: 1,
			Gates:      []engine.Gate{{Name: "X", Targets: []int{0}}},
		},
		Basis: "Z",
		Shots: intPtr(50),
		Seed:  int64Ptr(1),
		Step:  intPtr(0),
	}

	// Step 0 is the initial |0> state.
	result, err := svc.Measure(req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Step)
	assert.Equal(t, 50, result.Counts[measurement.SymbolPlus])

	req.Step = intPtr(2)
	_, err = svc.Measure(req)
	assert.ErrorIs(t, err, engine.ErrIndexOutOfRange)
}

func TestMeasureUsesDefaultShots(t *testing.T) {
	svc := testService(t)

	result, err := svc.Measure(MeasureRequest{
		SimulateRequest: hadamardRequest(),
		Basis:           "X",
		Seed:            int64Ptr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 1024, result.Shots)
}

func TestMeasureRejectsBadBasis(t *testing.T) {
	svc := testService(t)

	_, err := svc.Measure(MeasureRequest{
		SimulateRequest: hadamardRequest(),
		Basis:           "Q",
	})
	assert.ErrorIs(t, err, measurement.ErrInvalidBasis)
}

func TestMeasureCachesOnlySimulation(t *testing.T) {
	svc := testService(t)
	req := MeasureRequest{
		SimulateRequest: hadamardRequest(),
		Basis:           "Z",
		Shots:           intPtr(100),
	}

	_, err := svc.Measure(req)
	require.NoError(t, err)
	_, err = svc.Measure(req)
	require.NoError(t, err)

	stats := svc.CacheStats()
	assert.Equal(t, 1, stats.Entries, "only the snapshot sequence is cached")
	assert.Equal(t, uint64(1), stats.Hits)
}
