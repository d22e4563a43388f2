package measurement

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/blochd/internal/modules/engine"
)

func testSampler(maxShots int) *Sampler {
	return NewSampler(maxShots, zerolog.New(nil).Level(zerolog.Disabled))
}

func int64Ptr(v int64) *int64 { return &v }

func TestParseBasis(t *testing.T) {
	for _, s := range []string{"x", "X", " x "} {
		b, err := ParseBasis(s)
		require.NoError(t, err)
		assert.Equal(t, BasisX, b)
	}

	b, err := ParseBasis("z")
	require.NoError(t, err)
	assert.Equal(t, BasisZ, b)

	_, err = ParseBasis("w")
	assert.ErrorIs(t, err, ErrInvalidBasis)
}

func TestSampleSeedReproducibility(t *testing.T) {
	s := testSampler(4096)
	bloch := engine.BlochVector{X: 1 / 1.7320508, Y: 1 / 1.7320508, Z: 1 / 1.7320508}

	first, err := s.Sample(bloch, BasisZ, 3, 500, int64Ptr(42))
	require.NoError(t, err)
	second, err := s.Sample(bloch, BasisZ, 3, 500, int64Ptr(42))
	require.NoError(t, err)

	assert.Equal(t, first.Samples, second.Samples)
	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, first.Mean, second.Mean)

	other, err := s.Sample(bloch, BasisZ, 3, 500, int64Ptr(43))
	require.NoError(t, err)
	assert.NotEqual(t, first.Samples, other.Samples)
}

func TestSampleEigenstateIsDeterministic(t *testing.T) {
	s := testSampler(4096)

	res, err := s.Sample(engine.BlochVector{Z: 1}, BasisZ, 0, 1000, int64Ptr(7))
	require.NoError(t, err)

	assert.Equal(t, 1000, res.Counts[SymbolPlus])
	assert.Equal(t, 0, res.Counts[SymbolMinus])
	assert.InDelta(t, 1.0, res.Probabilities[SymbolPlus], 1e-12)
	assert.Equal(t, 1.0, res.Mean)
	assert.Equal(t, 0.0, res.StandardDeviation)
	assert.Equal(t, 1000, res.LongestRun)
	assert.Equal(t, SymbolPlus, res.LongestSymbol)
	assert.Equal(t, 0, res.Switches)
}

func TestSampleOrthogonalAxisIsUnbiased(t *testing.T) {
	s := testSampler(4096)

	// |+x> measured along Z: p(+) is exactly 1/2.
	res, err := s.Sample(engine.BlochVector{X: 1}, BasisZ, 0, 4096, int64Ptr(11))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.Probabilities[SymbolPlus], 1e-12)
	assert.InDelta(t, 0, res.Mean, 0.05)
	assert.Equal(t, [3]float64{0, 0, 0}, res.OverlayVector)
}

func TestSampleOverlayVectorIsAxisProjection(t *testing.T) {
	s := testSampler(4096)

	res, err := s.Sample(engine.BlochVector{X: 0.6, Z: 0.8}, BasisX, 2, 10, int64Ptr(1))
	require.NoError(t, err)

	assert.InDelta(t, 0.6, res.OverlayVector[0], 1e-12)
	assert.Equal(t, 0.0, res.OverlayVector[1])
	assert.Equal(t, 0.0, res.OverlayVector[2])
	assert.Equal(t, "X", res.Basis)
	assert.Equal(t, 2, res.Step)
}

func TestSampleStatisticsConsistency(t *testing.T) {
	s := testSampler(4096)

	res, err := s.Sample(engine.BlochVector{Z: 0.3}, BasisZ, 0, 800, int64Ptr(99))
	require.NoError(t, err)

	assert.Equal(t, 800, res.Counts[SymbolPlus]+res.Counts[SymbolMinus])
	assert.Len(t, res.Samples, 800)

	expectedMean := float64(res.Counts[SymbolPlus]-res.Counts[SymbolMinus]) / 800
	assert.InDelta(t, expectedMean, res.Mean, 1e-12)

	// Switches count the boundaries between maximal runs.
	runs := 1
	for i := 1; i < len(res.Samples); i++ {
		if res.Samples[i] != res.Samples[i-1] {
			runs++
		}
	}
	assert.Equal(t, runs-1, res.Switches)
	assert.LessOrEqual(t, res.LongestRun, 800)
	assert.GreaterOrEqual(t, res.LongestRun, 1)
}

func TestSampleShotValidation(t *testing.T) {
	s := testSampler(100)
	bloch := engine.BlochVector{Z: 1}

	_, err := s.Sample(bloch, BasisZ, 0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidShotCount)

	_, err = s.Sample(bloch, BasisZ, 0, -5, nil)
	assert.ErrorIs(t, err, ErrInvalidShotCount)

	_, err = s.Sample(bloch, BasisZ, 0, 101, nil)
	assert.ErrorIs(t, err, ErrShotCountExceeded)
}

func TestSampleWithoutSeedStillValid(t *testing.T) {
	s := testSampler(4096)

	res, err := s.Sample(engine.BlochVector{}, BasisY, 0, 64, nil)
	require.NoError(t, err)
	assert.Equal(t, 64, res.Counts[SymbolPlus]+res.Counts[SymbolMinus])
}

func TestAnalyzeRunsTieBreaksFirstSymbol(t *testing.T) {
	length, symbol, switches := analyzeRuns([]string{
		SymbolMinus, SymbolMinus, SymbolPlus, SymbolPlus,
	})
	assert.Equal(t, 2, length)
	assert.Equal(t, SymbolMinus, symbol)
	assert.Equal(t, 1, switches)
}
