package engine

import (
	"fmt"
	"math"
	"math/cmplx"
)

// GateKind partitions the closed gate vocabulary into fixed categories.
// Dispatch happens on the kind, not on open-ended string comparison.
type GateKind int

const (
	// KindUnitary - fixed single-qubit unitary (I, X, Y, Z, H)
	KindUnitary GateKind = iota
	// KindRotation - single-qubit unitary with one angle parameter (RX, RY, RZ, P)
	KindRotation
	// KindControlled - controlled single-qubit unitary (CX, CZ)
	KindControlled
	// KindReset - non-unitary projection onto |0> (RESET)
	KindReset
	// KindNoise - inline single-qubit noise channel (DEPOLARIZING, AMP_DAMP, PHASE_DAMP)
	KindNoise
	// KindMarker - measurement annotation, no state change (MEASURE_X/Y/Z)
	KindMarker
)

// gateSpec describes one vocabulary entry.
type gateSpec struct {
	kind      GateKind
	paramCnt  int
	unitaryFn func(params []float64) Matrix2
}

// Matrix2 is a 2x2 complex matrix in row-major order.
type Matrix2 [2][2]complex128

// Fixed single-qubit unitaries.
var (
	matI = Matrix2{{1, 0}, {0, 1}}
	matX = Matrix2{{0, 1}, {1, 0}}
	matY = Matrix2{{0, complex(0, -1)}, {complex(0, 1), 0}}
	matZ = Matrix2{{1, 0}, {0, -1}}
	matH = Matrix2{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	}
)

func fixed(m Matrix2) func([]float64) Matrix2 {
	return func([]float64) Matrix2 { return m }
}

// RX(theta) = exp(-i*theta*X/2)
func rotationX(params []float64) Matrix2 {
	c := complex(math.Cos(params[0]/2), 0)
	s := complex(0, -math.Sin(params[0]/2))
	return Matrix2{{c, s}, {s, c}}
}

// RY(theta) = exp(-i*theta*Y/2)
func rotationY(params []float64) Matrix2 {
	c := complex(math.Cos(params[0]/2), 0)
	s := complex(math.Sin(params[0]/2), 0)
	return Matrix2{{c, -s}, {s, c}}
}

// RZ(theta) = exp(-i*theta*Z/2)
func rotationZ(params []float64) Matrix2 {
	return Matrix2{
		{cmplx.Exp(complex(0, -params[0]/2)), 0},
		{0, cmplx.Exp(complex(0, params[0]/2))},
	}
}

// P(phi) = diag(1, e^{i*phi})
func phase(params []float64) Matrix2 {
	return Matrix2{{1, 0}, {0, cmplx.Exp(complex(0, params[0]))}}
}

// gateTable is the closed, case-sensitive gate vocabulary.
var gateTable = map[string]gateSpec{
	"I":            {kind: KindUnitary, unitaryFn: fixed(matI)},
	"X":            {kind: KindUnitary, unitaryFn: fixed(matX)},
	"Y":            {kind: KindUnitary, unitaryFn: fixed(matY)},
	"Z":            {kind: KindUnitary, unitaryFn: fixed(matZ)},
	"H":            {kind: KindUnitary, unitaryFn: fixed(matH)},
	"RX":           {kind: KindRotation, paramCnt: 1, unitaryFn: rotationX},
	"RY":           {kind: KindRotation, paramCnt: 1, unitaryFn: rotationY},
	"RZ":           {kind: KindRotation, paramCnt: 1, unitaryFn: rotationZ},
	"P":            {kind: KindRotation, paramCnt: 1, unitaryFn: phase},
	"CX":           {kind: KindControlled, unitaryFn: fixed(matX)},
	"CZ":           {kind: KindControlled, unitaryFn: fixed(matZ)},
	"RESET":        {kind: KindReset},
	"DEPOLARIZING": {kind: KindNoise, paramCnt: 1},
	"AMP_DAMP":     {kind: KindNoise, paramCnt: 1},
	"PHASE_DAMP":   {kind: KindNoise, paramCnt: 1},
	"MEASURE_Z":    {kind: KindMarker},
	"MEASURE_X":    {kind: KindMarker},
	"MEASURE_Y":    {kind: KindMarker},
}

// Gate is a single instruction in a circuit.
type Gate struct {
	Name       string            `json:"name"`
	Targets    []int             `json:"targets"`
	Controls   []int             `json:"controls,omitempty"`
	Parameters []float64         `json:"parameters,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Kind returns the gate's vocabulary category.
// Returns ErrInvalidGate for names outside the closed vocabulary.
func (g Gate) Kind() (GateKind, error) {
	spec, ok := gateTable[g.Name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGate, g.Name)
	}
	return spec.kind, nil
}

// Validate checks the gate against the vocabulary and the circuit's qubit count.
func (g Gate) Validate(qubitCount int) error {
	spec, ok := gateTable[g.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidGate, g.Name)
	}

	if len(g.Targets) == 0 {
		return fmt.Errorf("%w: gate %s has no targets", ErrInvalidParameters, g.Name)
	}
	for _, q := range g.Targets {
		if q < 0 || q >= qubitCount {
			return fmt.Errorf("%w: gate %s target %d (qubit_count %d)", ErrIndexOutOfRange, g.Name, q, qubitCount)
		}
	}
	for _, q := range g.Controls {
		if q < 0 || q >= qubitCount {
			return fmt.Errorf("%w: gate %s control %d (qubit_count %d)", ErrIndexOutOfRange, g.Name, q, qubitCount)
		}
		for _, t := range g.Targets {
			if q == t {
				return fmt.Errorf("%w: gate %s qubit %d is both control and target", ErrInvalidParameters, g.Name, q)
			}
		}
	}

	if len(g.Parameters) != spec.paramCnt {
		return fmt.Errorf("%w: gate %s expects %d parameter(s), got %d",
			ErrInvalidParameters, g.Name, spec.paramCnt, len(g.Parameters))
	}

	switch spec.kind {
	case KindControlled:
		if len(g.Controls) == 0 {
			return fmt.Errorf("%w: gate %s requires at least one control", ErrInvalidParameters, g.Name)
		}
		if len(g.Targets) != 1 {
			return fmt.Errorf("%w: gate %s requires exactly one target", ErrInvalidParameters, g.Name)
		}
	case KindNoise:
		p := g.Parameters[0]
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: gate %s probability %v", ErrInvalidNoiseParameter, g.Name, p)
		}
	}

	return nil
}

// unitary builds the gate's 2x2 matrix. Only valid for unitary kinds.
func (g Gate) unitary() Matrix2 {
	return gateTable[g.Name].unitaryFn(g.Parameters)
}

// touched returns the qubits the gate acts on (targets plus controls),
// used to scope per-gate noise channels.
func (g Gate) touched() []int {
	qubits := make([]int, 0, len(g.Targets)+len(g.Controls))
	qubits = append(qubits, g.Targets...)
	qubits = append(qubits, g.Controls...)
	return qubits
}
