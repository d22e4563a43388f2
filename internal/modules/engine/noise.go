package engine

import "math"

// Kraus operator sets for the supported single-qubit channels.
//
// Depolarizing convention: {sqrt(1-3p/4) I, sqrt(p/4) X, sqrt(p/4) Y, sqrt(p/4) Z},
// so p=1 maps any input to the maximally mixed state (Bloch vector shrinks to 0).

func depolarizingKraus(p float64) []Matrix2 {
	alpha := complex(math.Sqrt(math.Max(0, 1-3*p/4)), 0)
	beta := complex(math.Sqrt(p/4), 0)
	return []Matrix2{
		scale2(matI, alpha),
		scale2(matX, beta),
		scale2(matY, beta),
		scale2(matZ, beta),
	}
}

func amplitudeDampingKraus(gamma float64) []Matrix2 {
	keep := complex(math.Sqrt(math.Max(0, 1-gamma)), 0)
	return []Matrix2{
		{{1, 0}, {0, keep}},
		{{0, complex(math.Sqrt(gamma), 0)}, {0, 0}},
	}
}

func phaseDampingKraus(lambda float64) []Matrix2 {
	keep := complex(math.Sqrt(math.Max(0, 1-lambda)), 0)
	leak := complex(math.Sqrt(lambda), 0)
	return []Matrix2{
		{{keep, 0}, {0, keep}},
		{{leak, 0}, {0, 0}},
		{{0, 0}, {0, leak}},
	}
}

// resetKraus projects the qubit onto |0>: {|0><0|, |0><1|}.
var resetKraus = []Matrix2{
	{{1, 0}, {0, 0}},
	{{0, 1}, {0, 0}},
}

func scale2(m Matrix2, f complex128) Matrix2 {
	return Matrix2{
		{m[0][0] * f, m[0][1] * f},
		{m[1][0] * f, m[1][1] * f},
	}
}

// channelKraus maps an inline noise gate name and probability to its Kraus set.
func channelKraus(name string, p float64) []Matrix2 {
	switch name {
	case "DEPOLARIZING":
		return depolarizingKraus(p)
	case "AMP_DAMP":
		return amplitudeDampingKraus(p)
	case "PHASE_DAMP":
		return phaseDampingKraus(p)
	}
	return nil
}
