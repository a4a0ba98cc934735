package quantum

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// QASMBuilder builds OpenQASM 2.0 programs. Instructions are kept in
// program order since the teleportation circuit interleaves mid-circuit
// measurements with classically conditioned gates.
type QASMBuilder struct {
	version      string
	includeStmt  string
	numQubits    int
	numClassical int
	registers    []string
	instructions []string
}

// NewQASMBuilder creates a new OpenQASM circuit builder
func NewQASMBuilder(numQubits int, numClassical int) *QASMBuilder {
	builder := &QASMBuilder{
		version:      "OPENQASM 2.0;",
		includeStmt:  "include \"qelib1.inc\";",
		numQubits:    numQubits,
		numClassical: numClassical,
		registers:    make([]string, 0, 2),
		instructions: make([]string, 0),
	}

	builder.registers = append(builder.registers,
		fmt.Sprintf("qreg q[%d];", numQubits),
		fmt.Sprintf("creg c[%d];", numClassical),
	)

	return builder
}

// AddGate adds a raw gate statement
func (b *QASMBuilder) AddGate(gate string) {
	b.instructions = append(b.instructions, gate)
}

// X adds a bit-flip gate
func (b *QASMBuilder) X(qubit int) {
	b.AddGate(fmt.Sprintf("x q[%d];", qubit))
}

// H adds a Hadamard gate
func (b *QASMBuilder) H(qubit int) {
	b.AddGate(fmt.Sprintf("h q[%d];", qubit))
}

// Z adds a phase-flip gate
func (b *QASMBuilder) Z(qubit int) {
	b.AddGate(fmt.Sprintf("z q[%d];", qubit))
}

// CX adds a controlled-NOT gate
func (b *QASMBuilder) CX(control, target int) {
	b.AddGate(fmt.Sprintf("cx q[%d],q[%d];", control, target))
}

// AddMeasurement adds a measurement operation
func (b *QASMBuilder) AddMeasurement(qubit int, classical int) {
	b.instructions = append(b.instructions,
		fmt.Sprintf("measure q[%d] -> c[%d];", qubit, classical))
}

// AddConditional adds a single-qubit gate that only fires when classical
// bit clbit equals value
func (b *QASMBuilder) AddConditional(clbit int, value Bit, gate string, qubit int) {
	b.instructions = append(b.instructions,
		fmt.Sprintf("if (c[%d]==%s) %s q[%d];", clbit, value, gate, qubit))
}

// Build generates the complete QASM program string
func (b *QASMBuilder) Build() string {
	var circuit strings.Builder

	circuit.WriteString(b.version + "\n")
	circuit.WriteString(b.includeStmt + "\n")
	circuit.WriteString("\n")

	for _, reg := range b.registers {
		circuit.WriteString(reg + "\n")
	}
	circuit.WriteString("\n")

	for _, inst := range b.instructions {
		circuit.WriteString(inst + "\n")
	}

	return circuit.String()
}

// Teleportation register layout
const (
	TeleportQubits     = 3
	TeleportClassical  = 3
	TeleportOutputSlot = 2
)

// BuildTeleportationCircuit builds the fixed five-step teleportation
// program for one input bit
func BuildTeleportationCircuit(bit Bit) (*Circuit, error) {
	if !bit.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBit, int(bit))
	}

	builder := NewQASMBuilder(TeleportQubits, TeleportClassical)
	meta := newCircuitMeta(bit)

	// Step 1: prepare q0 in the requested basis state
	if bit == One {
		builder.X(0)
		meta.gate(1, "X", 0)
	}
	meta.step(1, fmt.Sprintf("Prepare qubit 0 in state %s", bit.Ket()), 0)

	// Step 2: Bell pair between q1 and q2
	builder.H(1)
	builder.CX(1, 2)
	meta.gate(2, "H", 1)
	meta.controlled(2, "CX", 1, 2)
	meta.step(2, "Create Bell pair (entanglement between qubits 1 and 2)", 1, 2)

	// Step 3: Bell measurement of q0 and q1
	builder.CX(0, 1)
	builder.H(0)
	builder.AddMeasurement(0, 0)
	builder.AddMeasurement(1, 1)
	meta.controlled(3, "CX", 0, 1)
	meta.gate(3, "H", 0)
	meta.measure(3, 0, 0)
	meta.measure(3, 1, 1)
	meta.step(3, "Bell measurement on qubits 0 and 1", 0, 1)

	// Step 4: corrections on q2 driven by the classical results
	builder.AddConditional(1, One, "x", 2)
	builder.AddConditional(0, One, "z", 2)
	meta.conditional(4, "X", 2, "c[1]==1")
	meta.conditional(4, "Z", 2, "c[0]==1")
	meta.step(4, "Conditional operations on qubit 2 based on measurement results", 2)

	// Step 5: read out the teleported bit
	builder.AddMeasurement(2, TeleportOutputSlot)
	meta.measure(5, 2, TeleportOutputSlot)
	meta.step(5, "Measure qubit 2 to recover the teleported state", 2)

	return newCircuit(bit, builder.Build(), SourceManual, meta)
}

// Probabilities normalises measurement counts into outcome frequencies
func Probabilities(counts map[string]int) map[string]float64 {
	total := lo.Sum(lo.Values(counts))
	if total == 0 {
		return map[string]float64{}
	}
	return lo.MapValues(counts, func(n int, _ string) float64 {
		return float64(n) / float64(total)
	})
}
