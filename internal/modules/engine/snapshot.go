package engine

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// BlochVector is the focus qubit's reduced state as a point inside or on the
// unit sphere.
type BlochVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Radius returns the vector's length.
func (b BlochVector) Radius() float64 {
	return math.Sqrt(b.X*b.X + b.Y*b.Y + b.Z*b.Z)
}

// Dot returns the scalar product with another vector.
func (b BlochVector) Dot(o BlochVector) float64 {
	return b.X*o.X + b.Y*o.Y + b.Z*o.Z
}

// Snapshot captures the visualization-relevant state after one circuit step.
// Immutable once created; owned by the cache entry holding its sequence.
type Snapshot struct {
	Step          int               `json:"step"`
	Bloch         BlochVector       `json:"bloch"`
	Probabilities []float64         `json:"probabilities"`
	GlobalPhase   *float64          `json:"global_phase,omitempty"`
	Purity        float64           `json:"purity"`
	Radius        float64           `json:"radius"`
	FocusQubit    int               `json:"focus_qubit"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// extractBloch converts a 2x2 reduced density matrix to Bloch coordinates:
// x = tr(rho X), y = tr(rho Y), z = tr(rho Z).
func extractBloch(rho *mat.CDense) BlochVector {
	return BlochVector{
		X: 2 * real(rho.At(0, 1)),
		Y: 2 * imag(rho.At(1, 0)),
		Z: real(rho.At(0, 0) - rho.At(1, 1)),
	}
}

// purity computes tr(rho^2) of a 2x2 reduced density matrix.
func purity(rho *mat.CDense) float64 {
	var tr complex128
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			tr += rho.At(i, j) * rho.At(j, i)
		}
	}
	return real(tr)
}
