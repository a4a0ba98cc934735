package quantum

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/crypto/sha3"
)

// Circuit sources
const (
	SourceManual  = "manual"
	SourceClassiq = "classiq"
)

// Circuit is an executable teleportation program plus the metadata used to
// visualize it
type Circuit struct {
	Bit          Bit            `json:"bit"`
	Program      string         `json:"qasm"`
	Source       string         `json:"source"`
	Digest       string         `json:"digest"`
	NumQubits    int            `json:"num_qubits"`
	NumClassical int            `json:"num_classical_bits"`
	Depth        int            `json:"depth"`
	GateCounts   map[string]int `json:"gate_count"`
	Data         CircuitData    `json:"circuit_data"`

	parsed *Program
}

// CircuitData describes the circuit step by step
type CircuitData struct {
	Steps        []Step          `json:"steps"`
	Gates        []GateOp        `json:"gates"`
	Measurements []MeasurementOp `json:"measurements"`
	InitialState string          `json:"initial_state"`
}

// Step is one stage of the protocol
type Step struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
	Qubits      []int  `json:"qubits"`
}

// GateOp is one gate application. Single-qubit gates set Qubit,
// controlled gates set Control and Target.
type GateOp struct {
	Gate      string `json:"gate"`
	Qubit     *int   `json:"qubit,omitempty"`
	Control   *int   `json:"control,omitempty"`
	Target    *int   `json:"target,omitempty"`
	Condition string `json:"condition,omitempty"`
	Step      int    `json:"step"`
}

// MeasurementOp maps a qubit onto a classical slot
type MeasurementOp struct {
	Qubit        int `json:"qubit"`
	ClassicalBit int `json:"classical_bit"`
	Step         int `json:"step"`
}

func newCircuitMeta(bit Bit) *CircuitData {
	return &CircuitData{
		Steps:        make([]Step, 0, 5),
		Gates:        make([]GateOp, 0),
		Measurements: make([]MeasurementOp, 0),
		InitialState: bit.Ket(),
	}
}

func (d *CircuitData) step(n int, desc string, qubits ...int) {
	d.Steps = append(d.Steps, Step{Step: n, Description: desc, Qubits: qubits})
}

func (d *CircuitData) gate(n int, name string, qubit int) {
	d.Gates = append(d.Gates, GateOp{Gate: name, Qubit: lo.ToPtr(qubit), Step: n})
}

func (d *CircuitData) controlled(n int, name string, control, target int) {
	d.Gates = append(d.Gates, GateOp{Gate: name, Control: lo.ToPtr(control), Target: lo.ToPtr(target), Step: n})
}

func (d *CircuitData) conditional(n int, name string, qubit int, cond string) {
	d.Gates = append(d.Gates, GateOp{Gate: name, Qubit: lo.ToPtr(qubit), Condition: cond, Step: n})
}

func (d *CircuitData) measure(n int, qubit, clbit int) {
	d.Measurements = append(d.Measurements, MeasurementOp{Qubit: qubit, ClassicalBit: clbit, Step: n})
}

// newCircuit parses program and fills in the derived fields. When meta is
// nil the gate and measurement lists are derived from the program itself.
func newCircuit(bit Bit, program, source string, meta *CircuitData) (*Circuit, error) {
	parsed, err := ParseProgram(program)
	if err != nil {
		return nil, err
	}
	if parsed.NumQubits < TeleportQubits || parsed.NumClbits < TeleportClassical {
		return nil, fmt.Errorf("%w: teleportation needs %d qubits and %d classical bits, got %d and %d",
			ErrInvalidProgram, TeleportQubits, TeleportClassical, parsed.NumQubits, parsed.NumClbits)
	}
	if meta == nil {
		meta = metaFromProgram(bit, parsed)
	}

	return &Circuit{
		Bit:          bit,
		Program:      program,
		Source:       source,
		Digest:       ProgramDigest(program),
		NumQubits:    parsed.NumQubits,
		NumClassical: parsed.NumClbits,
		Depth:        parsed.Depth(),
		GateCounts:   parsed.GateCounts(),
		Data:         *meta,
		parsed:       parsed,
	}, nil
}

func metaFromProgram(bit Bit, p *Program) *CircuitData {
	meta := newCircuitMeta(bit)
	for _, inst := range p.Instructions {
		switch {
		case inst.Name == "measure":
			meta.measure(0, inst.Qubits[0], inst.Clbit)
		case len(inst.Qubits) == 2:
			meta.controlled(0, strings.ToUpper(inst.Name), inst.Qubits[0], inst.Qubits[1])
		case inst.Condition != nil:
			meta.conditional(0, strings.ToUpper(inst.Name), inst.Qubits[0],
				fmt.Sprintf("c[%d]==%s", inst.Condition.Clbit, inst.Condition.Value))
		default:
			meta.gate(0, strings.ToUpper(inst.Name), inst.Qubits[0])
		}
	}
	return meta
}

// ProgramDigest returns the hex SHA3-256 digest of a program text
func ProgramDigest(program string) string {
	sum := sha3.Sum256([]byte(program))
	return hex.EncodeToString(sum[:])
}

// Program is a parsed OpenQASM program
type Program struct {
	NumQubits    int
	NumClbits    int
	Instructions []Instruction
}

// Instruction is one executable statement
type Instruction struct {
	Name      string
	Qubits    []int
	Clbit     int
	Condition *Condition
}

// Condition gates an instruction on a single classical bit
type Condition struct {
	Clbit int
	Value Bit
}

var (
	qregRegex       = regexp.MustCompile(`^qreg\s+q\[(\d+)\];?$`)
	cregRegex       = regexp.MustCompile(`^creg\s+c\[(\d+)\];?$`)
	singleGateRegex = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	twoQubitRegex   = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\]\s*,\s*q\[(\d+)\];?$`)
	measureRegex    = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*c\[(\d+)\];?$`)
	ifRegex         = regexp.MustCompile(`^if\s*\(\s*c\[(\d+)\]\s*==\s*([01])\s*\)\s*(.+)$`)
)

var (
	singleQubitGates = map[string]bool{"x": true, "h": true, "z": true}
	twoQubitGates    = map[string]bool{"cx": true}
)

// ParseProgram parses the supported OpenQASM 2.0 subset: q/c registers,
// x, h, z, cx, measure and single-bit if conditions
func ParseProgram(qasm string) (*Program, error) {
	p := &Program{NumQubits: -1, NumClbits: -1}

	scanner := bufio.NewScanner(strings.NewReader(qasm))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" || strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") {
			continue
		}

		if m := qregRegex.FindStringSubmatch(line); m != nil {
			p.NumQubits, _ = strconv.Atoi(m[1])
			continue
		}
		if m := cregRegex.FindStringSubmatch(line); m != nil {
			p.NumClbits, _ = strconv.Atoi(m[1])
			continue
		}

		inst, err := p.parseStatement(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidProgram, lineNo, err)
		}
		p.Instructions = append(p.Instructions, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}

	if p.NumQubits <= 0 {
		return nil, fmt.Errorf("%w: missing qreg declaration", ErrInvalidProgram)
	}
	if p.NumClbits < 0 {
		p.NumClbits = 0
	}

	return p, nil
}

func (p *Program) parseStatement(line string) (Instruction, error) {
	if p.NumQubits <= 0 {
		return Instruction{}, fmt.Errorf("statement before qreg declaration: %q", line)
	}

	if m := ifRegex.FindStringSubmatch(line); m != nil {
		clbit, _ := strconv.Atoi(m[1])
		if clbit >= p.NumClbits {
			return Instruction{}, fmt.Errorf("classical bit %d out of range", clbit)
		}
		inst, err := p.parseStatement(strings.TrimSpace(m[3]))
		if err != nil {
			return Instruction{}, err
		}
		if inst.Name == "measure" || inst.Condition != nil {
			return Instruction{}, fmt.Errorf("unsupported conditional statement: %q", line)
		}
		value := Zero
		if m[2] == "1" {
			value = One
		}
		inst.Condition = &Condition{Clbit: clbit, Value: value}
		return inst, nil
	}

	if m := measureRegex.FindStringSubmatch(line); m != nil {
		q, _ := strconv.Atoi(m[1])
		c, _ := strconv.Atoi(m[2])
		if q >= p.NumQubits || c >= p.NumClbits {
			return Instruction{}, fmt.Errorf("measurement index out of range: %q", line)
		}
		return Instruction{Name: "measure", Qubits: []int{q}, Clbit: c}, nil
	}

	if m := twoQubitRegex.FindStringSubmatch(line); m != nil {
		name := strings.ToLower(m[1])
		if !twoQubitGates[name] {
			return Instruction{}, fmt.Errorf("unsupported gate %q", m[1])
		}
		c, _ := strconv.Atoi(m[2])
		t, _ := strconv.Atoi(m[3])
		if c >= p.NumQubits || t >= p.NumQubits || c == t {
			return Instruction{}, fmt.Errorf("invalid qubit operands: %q", line)
		}
		return Instruction{Name: name, Qubits: []int{c, t}}, nil
	}

	if m := singleGateRegex.FindStringSubmatch(line); m != nil {
		name := strings.ToLower(m[1])
		if !singleQubitGates[name] {
			return Instruction{}, fmt.Errorf("unsupported gate %q", m[1])
		}
		q, _ := strconv.Atoi(m[2])
		if q >= p.NumQubits {
			return Instruction{}, fmt.Errorf("qubit %d out of range", q)
		}
		return Instruction{Name: name, Qubits: []int{q}}, nil
	}

	return Instruction{}, fmt.Errorf("unrecognized statement %q", line)
}

// Depth is the length of the critical path through qubits and classical
// bits. Measurements and conditions occupy their classical bit.
func (p *Program) Depth() int {
	qlevel := make([]int, p.NumQubits)
	clevel := make([]int, p.NumClbits)
	depth := 0

	for _, inst := range p.Instructions {
		level := 0
		for _, q := range inst.Qubits {
			level = max(level, qlevel[q])
		}
		if inst.Name == "measure" {
			level = max(level, clevel[inst.Clbit])
		}
		if inst.Condition != nil {
			level = max(level, clevel[inst.Condition.Clbit])
		}

		level++
		for _, q := range inst.Qubits {
			qlevel[q] = level
		}
		if inst.Name == "measure" {
			clevel[inst.Clbit] = level
		}
		if inst.Condition != nil {
			clevel[inst.Condition.Clbit] = level
		}
		depth = max(depth, level)
	}

	return depth
}

// GateCounts counts instructions by name
func (p *Program) GateCounts() map[string]int {
	return lo.CountValuesBy(p.Instructions, func(inst Instruction) string {
		return inst.Name
	})
}
