// Package measurement draws projective measurement outcomes from a Bloch
// vector along a chosen basis axis, with reproducible per-call statistics.
package measurement

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/blochd/internal/modules/engine"
)

// Sampler errors.
var (
	ErrInvalidShotCount  = errors.New("shots must be positive")
	ErrShotCountExceeded = errors.New("shot count exceeds configured ceiling")
	ErrInvalidBasis      = errors.New("basis must be X, Y or Z")
)

// Outcome labels.
const (
	SymbolPlus  = "plus"
	SymbolMinus = "minus"
)

// Basis is a measurement axis.
type Basis string

const (
	BasisX Basis = "X"
	BasisY Basis = "Y"
	BasisZ Basis = "Z"
)

// ParseBasis normalizes a basis string (case-insensitive single letter).
func ParseBasis(s string) (Basis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return BasisX, nil
	case "Y":
		return BasisY, nil
	case "Z":
		return BasisZ, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBasis, s)
}

// Axis returns the basis unit vector.
func (b Basis) Axis() engine.BlochVector {
	switch b {
	case BasisX:
		return engine.BlochVector{X: 1}
	case BasisY:
		return engine.BlochVector{Y: 1}
	}
	return engine.BlochVector{Z: 1}
}

// Result holds the outcome statistics of one sampling call.
// Computed on demand; not mutated after construction.
type Result struct {
	Step              int                `json:"step"`
	Basis             string             `json:"basis"`
	Shots             int                `json:"shots"`
	Counts            map[string]int     `json:"counts"`
	Probabilities     map[string]float64 `json:"probabilities"`
	OverlayVector     [3]float64         `json:"overlay_vector"`
	Samples           []string           `json:"samples"`
	Mean              float64            `json:"mean"`
	StandardDeviation float64            `json:"standard_deviation"`
	LongestRun        int                `json:"longest_run"`
	LongestSymbol     string             `json:"longest_symbol"`
	Switches          int                `json:"switches"`
}

// Sampler draws Bernoulli shot sequences. It holds no mutable state; every
// call builds its own generator from the explicit seed so concurrent calls
// are independently reproducible.
type Sampler struct {
	maxShots int
	log      zerolog.Logger
}

// NewSampler creates a sampler with the given shot ceiling.
func NewSampler(maxShots int, log zerolog.Logger) *Sampler {
	return &Sampler{
		maxShots: maxShots,
		log:      log.With().Str("component", "sampler").Logger(),
	}
}

// Sample draws shots independent outcomes along basis from the given Bloch
// vector: p(+) = (1 + b.axis)/2. A nil seed draws the generator seed from
// system entropy.
func (s *Sampler) Sample(bloch engine.BlochVector, basis Basis, step, shots int, seed *int64) (*Result, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidShotCount, shots)
	}
	if shots > s.maxShots {
		return nil, fmt.Errorf("%w: %d > %d", ErrShotCountExceeded, shots, s.maxShots)
	}

	axis := basis.Axis()
	dot := math.Max(-1, math.Min(1, bloch.Dot(axis)))
	pPlus := (1 + dot) / 2
	pMinus := 1 - pPlus

	rng := rand.New(rand.NewSource(resolveSeed(seed)))

	samples := make([]string, shots)
	series := make([]float64, shots)
	counts := map[string]int{SymbolPlus: 0, SymbolMinus: 0}
	for i := 0; i < shots; i++ {
		if rng.Float64() < pPlus {
			samples[i] = SymbolPlus
			series[i] = 1
		} else {
			samples[i] = SymbolMinus
			series[i] = -1
		}
		counts[samples[i]]++
	}

	mean := stat.Mean(series, nil)
	stdDev := populationStdDev(series, mean)
	longestRun, longestSymbol, switches := analyzeRuns(samples)

	return &Result{
		Step:   step,
		Basis:  string(basis),
		Shots:  shots,
		Counts: counts,
		Probabilities: map[string]float64{
			SymbolPlus:  pPlus,
			SymbolMinus: pMinus,
		},
		OverlayVector:     [3]float64{dot * axis.X, dot * axis.Y, dot * axis.Z},
		Samples:           samples,
		Mean:              mean,
		StandardDeviation: stdDev,
		LongestRun:        longestRun,
		LongestSymbol:     longestSymbol,
		Switches:          switches,
	}, nil
}

// resolveSeed returns the explicit seed, or one drawn from system entropy.
func resolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable; a zero seed still
		// produces a valid (if fixed) sequence.
		return 0
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// populationStdDev computes the uncorrected (population) standard deviation.
func populationStdDev(series []float64, mean float64) float64 {
	var sum float64
	for _, v := range series {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(series)))
}

// analyzeRuns finds the longest run of identical consecutive outcomes (ties
// broken by the first-occurring symbol) and the number of adjacent switches.
func analyzeRuns(samples []string) (int, string, int) {
	if len(samples) == 0 {
		return 0, "", 0
	}
	longestLen := 1
	longestSymbol := samples[0]
	currentLen := 1
	switches := 0
	for i := 1; i < len(samples); i++ {
		if samples[i] == samples[i-1] {
			currentLen++
			continue
		}
		switches++
		if currentLen > longestLen {
			longestLen = currentLen
			longestSymbol = samples[i-1]
		}
		currentLen = 1
	}
	if currentLen > longestLen {
		longestLen = currentLen
		longestSymbol = samples[len(samples)-1]
	}
	return longestLen, longestSymbol, switches
}
