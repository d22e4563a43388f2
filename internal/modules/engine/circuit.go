package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Circuit is an ordered gate sequence over a fixed register.
// It is treated as immutable once handed to the simulator.
type Circuit struct {
	QubitCount  int      `json:"qubit_count"`
	Gates       []Gate   `json:"gates"`
	GlobalPhase *float64 `json:"global_phase,omitempty"`
}

// NoiseConfig holds the three global noise channel probabilities.
// A nil field disables that channel.
type NoiseConfig struct {
	Depolarizing     *float64 `json:"depolarizing,omitempty"`
	AmplitudeDamping *float64 `json:"amplitude_damping,omitempty"`
	PhaseDamping     *float64 `json:"phase_damping,omitempty"`
}

// Enabled reports whether any channel has a positive probability.
func (n *NoiseConfig) Enabled() bool {
	if n == nil {
		return false
	}
	for _, p := range []*float64{n.Depolarizing, n.AmplitudeDamping, n.PhaseDamping} {
		if p != nil && *p > 0 {
			return true
		}
	}
	return false
}

// Validate checks every configured probability is in [0,1].
func (n *NoiseConfig) Validate() error {
	if n == nil {
		return nil
	}
	for name, p := range map[string]*float64{
		"depolarizing":      n.Depolarizing,
		"amplitude_damping": n.AmplitudeDamping,
		"phase_damping":     n.PhaseDamping,
	} {
		if p != nil && (*p < 0 || *p > 1) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidNoiseParameter, name, *p)
		}
	}
	return nil
}

// Fingerprint derives the deterministic cache key for a
// (circuit, noise config, focus qubit) triple. Semantically equal inputs
// always map to the same key; metadata does not participate.
func Fingerprint(c Circuit, noise *NoiseConfig, focusQubit int) string {
	var b strings.Builder

	b.WriteString("q=")
	b.WriteString(strconv.Itoa(c.QubitCount))
	b.WriteString(";phase=")
	writeFloat(&b, c.GlobalPhase)
	b.WriteString(";focus=")
	b.WriteString(strconv.Itoa(focusQubit))

	for _, g := range c.Gates {
		b.WriteString(";g=")
		b.WriteString(g.Name)
		b.WriteByte('[')
		writeInts(&b, g.Targets)
		b.WriteByte('|')
		writeInts(&b, g.Controls)
		b.WriteByte('|')
		for i, p := range g.Parameters {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
		}
		b.WriteByte(']')
	}

	b.WriteString(";noise=")
	if noise == nil {
		b.WriteString("none")
	} else {
		writeFloat(&b, noise.Depolarizing)
		b.WriteByte(',')
		writeFloat(&b, noise.AmplitudeDamping)
		b.WriteByte(',')
		writeFloat(&b, noise.PhaseDamping)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeFloat(b *strings.Builder, p *float64) {
	if p == nil {
		b.WriteString("0")
		return
	}
	b.WriteString(strconv.FormatFloat(*p, 'g', -1, 64))
}

func writeInts(b *strings.Builder, vals []int) {
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
}
