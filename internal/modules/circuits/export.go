package circuits

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/blochd/internal/modules/engine"
)

// Export formats.
const (
	FormatQASM = "qasm"
	FormatJSON = "json"
)

// Export renders a circuit in the requested format.
func Export(req SimulateRequest, format string) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatQASM, "":
		return exportQASM(req), "text/plain", nil
	case FormatJSON:
		raw, err := json.MarshalIndent(req, "", "  ")
		if err != nil {
			return "", "", fmt.Errorf("failed to encode circuit: %w", err)
		}
		return string(raw), "application/json", nil
	}
	return "", "", fmt.Errorf("%w: unknown export format %q", engine.ErrInvalidParameters, format)
}

// exportQASM renders OpenQASM 3. Noise channels and measurement annotations
// have no QASM equivalent and are emitted as comments.
func exportQASM(req SimulateRequest) string {
	var b strings.Builder
	b.WriteString("OPENQASM 3.0;\n")
	b.WriteString("include \"stdgates.inc\";\n\n")
	fmt.Fprintf(&b, "qubit[%d] q;\n", req.QubitCount)
	if req.GlobalPhase != nil && *req.GlobalPhase != 0 {
		fmt.Fprintf(&b, "gphase(%s);\n", formatAngle(*req.GlobalPhase))
	}
	b.WriteString("\n")

	for _, g := range req.Gates {
		writeQASMGate(&b, g)
	}
	return b.String()
}

func writeQASMGate(b *strings.Builder, g engine.Gate) {
	switch g.Name {
	case "I":
		for _, t := range g.Targets {
			fmt.Fprintf(b, "id q[%d];\n", t)
		}
	case "X", "Y", "Z", "H":
		name := strings.ToLower(g.Name)
		for _, t := range g.Targets {
			fmt.Fprintf(b, "%s q[%d];\n", name, t)
		}
	case "RX", "RY", "RZ", "P":
		name := strings.ToLower(g.Name)
		for _, t := range g.Targets {
			fmt.Fprintf(b, "%s(%s) q[%d];\n", name, formatAngle(g.Parameters[0]), t)
		}
	case "CX", "CZ":
		base := strings.ToLower(string(g.Name[1]))
		ctrl := ""
		if len(g.Controls) > 1 {
			ctrl = fmt.Sprintf("ctrl(%d) @ ", len(g.Controls)-1)
		}
		fmt.Fprintf(b, "%sc%s %s, q[%d];\n", ctrl, base, qubitList(g.Controls), g.Targets[0])
	case "RESET":
		for _, t := range g.Targets {
			fmt.Fprintf(b, "reset q[%d];\n", t)
		}
	case "DEPOLARIZING", "AMP_DAMP", "PHASE_DAMP":
		fmt.Fprintf(b, "// noise %s(%s) on %s\n",
			strings.ToLower(g.Name), formatAngle(g.Parameters[0]), qubitList(g.Targets))
	case "MEASURE_X", "MEASURE_Y", "MEASURE_Z":
		fmt.Fprintf(b, "// annotation %s on %s\n", strings.ToLower(g.Name), qubitList(g.Targets))
	}
}

func qubitList(qubits []int) string {
	parts := make([]string, len(qubits))
	for i, q := range qubits {
		parts[i] = fmt.Sprintf("q[%d]", q)
	}
	return strings.Join(parts, ", ")
}

func formatAngle(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
