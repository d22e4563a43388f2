package engine

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// State is the evolving quantum state of a simulation run. It starts as a
// statevector and upgrades irreversibly to a density matrix the first time a
// non-unitary operation (noise channel or RESET) is applied.
type State struct {
	qubits int
	dim    int
	vec    []complex128 // non-nil while the state is pure
	rho    *mat.CDense  // non-nil once the state is mixed
}

// NewState initializes |0...0> over the given register size.
func NewState(qubits int) *State {
	dim := 1 << qubits
	vec := make([]complex128, dim)
	vec[0] = 1
	return &State{qubits: qubits, dim: dim, vec: vec}
}

// Pure reports whether the state is still held as a statevector.
func (s *State) Pure() bool {
	return s.vec != nil
}

// ApplyGlobalPhase multiplies the statevector by e^{i*phi}.
// A global phase has no observable effect on a density matrix.
func (s *State) ApplyGlobalPhase(phi float64) {
	if s.vec == nil {
		return
	}
	f := cmplx.Exp(complex(0, phi))
	for i := range s.vec {
		s.vec[i] *= f
	}
}

// ApplyUnitary applies a single-qubit unitary on target, restricted to basis
// components where every control bit is 1.
func (s *State) ApplyUnitary(u Matrix2, target int, controls []int) {
	if s.vec != nil {
		s.applyVecUnitary(u, target, controls)
		return
	}
	op := s.expandOperator(u, target, controls)
	tmp := mat.NewCDense(s.dim, s.dim, nil)
	out := mat.NewCDense(s.dim, s.dim, nil)
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, op.RawCMatrix(), s.rho.RawCMatrix(), 0, tmp.RawCMatrix())
	cblas128.Gemm(blas.NoTrans, blas.ConjTrans, 1, tmp.RawCMatrix(), op.RawCMatrix(), 0, out.RawCMatrix())
	s.rho = out
}

// ApplyKraus applies an operator-sum channel on the target qubit:
// rho -> sum_k K rho K^dagger. Forces the density representation.
func (s *State) ApplyKraus(kraus []Matrix2, target int) {
	s.toDensity()
	sum := mat.NewCDense(s.dim, s.dim, nil)
	tmp := mat.NewCDense(s.dim, s.dim, nil)
	out := mat.NewCDense(s.dim, s.dim, nil)
	for _, k := range kraus {
		op := s.expandOperator(k, target, nil)
		cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, op.RawCMatrix(), s.rho.RawCMatrix(), 0, tmp.RawCMatrix())
		cblas128.Gemm(blas.NoTrans, blas.ConjTrans, 1, tmp.RawCMatrix(), op.RawCMatrix(), 0, out.RawCMatrix())
		for i := 0; i < s.dim; i++ {
			for j := 0; j < s.dim; j++ {
				sum.Set(i, j, sum.At(i, j)+out.At(i, j))
			}
		}
	}
	s.rho = sum
}

// applyVecUnitary updates amplitude pairs in place (little-endian bit order:
// qubit q is bit q of the basis index).
func (s *State) applyVecUnitary(u Matrix2, target int, controls []int) {
	bit := 1 << target
	for i := range s.vec {
		if i&bit != 0 {
			continue
		}
		if !controlsSet(i, controls) {
			continue
		}
		j := i | bit
		a0, a1 := s.vec[i], s.vec[j]
		s.vec[i] = u[0][0]*a0 + u[0][1]*a1
		s.vec[j] = u[1][0]*a0 + u[1][1]*a1
	}
}

// expandOperator lifts a 2x2 operator on target (with optional controls) to
// the full register dimension. Columns are populated from the operator's
// action on each basis state; uncontrolled components pass through.
func (s *State) expandOperator(u Matrix2, target int, controls []int) *mat.CDense {
	op := mat.NewCDense(s.dim, s.dim, nil)
	bit := 1 << target
	for col := 0; col < s.dim; col++ {
		if !controlsSet(col, controls) {
			op.Set(col, col, 1)
			continue
		}
		b := 0
		if col&bit != 0 {
			b = 1
		}
		row0 := col &^ bit
		row1 := row0 | bit
		op.Set(row0, col, u[0][b])
		op.Set(row1, col, u[1][b])
	}
	return op
}

func controlsSet(index int, controls []int) bool {
	for _, c := range controls {
		if index&(1<<c) == 0 {
			return false
		}
	}
	return true
}

// toDensity converts the statevector to its outer-product density matrix.
func (s *State) toDensity() {
	if s.rho != nil {
		return
	}
	rho := mat.NewCDense(s.dim, s.dim, nil)
	for i := 0; i < s.dim; i++ {
		for j := 0; j < s.dim; j++ {
			rho.Set(i, j, s.vec[i]*cmplx.Conj(s.vec[j]))
		}
	}
	s.rho = rho
	s.vec = nil
}

// Probabilities returns the full-system basis-state distribution: squared
// amplitude magnitudes for a pure state, the diagonal for a mixed one.
func (s *State) Probabilities() []float64 {
	probs := make([]float64, s.dim)
	if s.vec != nil {
		for i, a := range s.vec {
			probs[i] = real(a)*real(a) + imag(a)*imag(a)
		}
		return probs
	}
	for i := 0; i < s.dim; i++ {
		probs[i] = real(s.rho.At(i, i))
	}
	return probs
}

// ReducedDensity traces out every qubit except focus, returning the focus
// qubit's 2x2 reduced density matrix.
func (s *State) ReducedDensity(focus int) (*mat.CDense, error) {
	if focus < 0 || focus >= s.qubits {
		return nil, fmt.Errorf("%w: focus qubit %d (qubit_count %d)", ErrIndexOutOfRange, focus, s.qubits)
	}

	reduced := mat.NewCDense(2, 2, nil)
	bit := 1 << focus
	for rest := 0; rest < s.dim; rest++ {
		if rest&bit != 0 {
			continue
		}
		for a := 0; a < 2; a++ {
			for b := 0; b < 2; b++ {
				i := rest | a<<focus
				j := rest | b<<focus
				var v complex128
				if s.vec != nil {
					v = s.vec[i] * cmplx.Conj(s.vec[j])
				} else {
					v = s.rho.At(i, j)
				}
				reduced.Set(a, b, reduced.At(a, b)+v)
			}
		}
	}
	return reduced, nil
}

// CheckInvariants verifies normalization (pure) or unit trace (mixed).
func (s *State) CheckInvariants(tol float64) error {
	if s.vec != nil {
		var norm float64
		for _, a := range s.vec {
			norm += real(a)*real(a) + imag(a)*imag(a)
		}
		if math.Abs(norm-1) > tol {
			return fmt.Errorf("%w: statevector norm %v", ErrInternalComputation, norm)
		}
		return nil
	}

	var trace complex128
	for i := 0; i < s.dim; i++ {
		trace += s.rho.At(i, i)
	}
	if math.Abs(real(trace)-1) > tol || math.Abs(imag(trace)) > tol {
		return fmt.Errorf("%w: density matrix trace %v", ErrInternalComputation, trace)
	}
	return nil
}
