package quantum

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Backend executes QASM programs and reports classical measurement results
type Backend interface {
	// Name returns the name of the quantum backend
	Name() string

	// Execute runs program for the given number of shots
	Execute(ctx context.Context, program string, shots int) (*ExecutionResult, error)

	// NoiseLevel returns the readout error probability of the backend
	NoiseLevel() float64

	// IsSimulator returns true if this is a simulator, false for real hardware
	IsSimulator() bool
}

// ExecutionResult holds per-shot classical registers. Every string is in
// classical slot order: character k is c[k].
type ExecutionResult struct {
	Backend string         `json:"backend"`
	Shots   int            `json:"shots"`
	Memory  []string       `json:"memory"`
	Counts  map[string]int `json:"counts"`
}

// ErrNoShots is returned when a backend reports no measurement results
var ErrNoShots = errors.New("backend returned no measurement results")

func newExecutionResult(backend string, memory []string) *ExecutionResult {
	counts := make(map[string]int, len(memory))
	for _, m := range memory {
		counts[m]++
	}
	return &ExecutionResult{
		Backend: backend,
		Shots:   len(memory),
		Memory:  memory,
		Counts:  counts,
	}
}

// SimulatorBackend is an in-process state-vector simulator
type SimulatorBackend struct {
	name       string
	noiseLevel float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatorBackend creates a simulator. noiseLevel is the probability
// that a measured classical bit is read out flipped. A zero seed draws one
// from the clock.
func NewSimulatorBackend(noiseLevel float64, seed int64) *SimulatorBackend {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatorBackend{
		name:       "statevector_simulator",
		noiseLevel: noiseLevel,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Name returns the name of the simulator backend
func (s *SimulatorBackend) Name() string {
	return s.name
}

// NoiseLevel returns the readout error probability
func (s *SimulatorBackend) NoiseLevel() float64 {
	return s.noiseLevel
}

// IsSimulator returns true since this is a simulator
func (s *SimulatorBackend) IsSimulator() bool {
	return true
}

// Execute parses program and runs it shots times
func (s *SimulatorBackend) Execute(ctx context.Context, program string, shots int) (*ExecutionResult, error) {
	if shots < 1 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}

	parsed, err := ParseProgram(program)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	memory := make([]string, 0, shots)
	for i := 0; i < shots; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := s.runShot(parsed)
		if err != nil {
			return nil, err
		}
		memory = append(memory, out)
	}

	return newExecutionResult(s.name, memory), nil
}

func (s *SimulatorBackend) runShot(p *Program) (string, error) {
	state := NewStateVector(p.NumQubits)
	clbits := make([]Bit, p.NumClbits)

	for _, inst := range p.Instructions {
		if inst.Condition != nil && clbits[inst.Condition.Clbit] != inst.Condition.Value {
			continue
		}

		if inst.Name == "measure" {
			bit, err := state.Measure(inst.Qubits[0], s.rng)
			if err != nil {
				return "", err
			}
			if s.noiseLevel > 0 && s.rng.Float64() < s.noiseLevel {
				bit = 1 - bit
			}
			clbits[inst.Clbit] = bit
			continue
		}

		if err := state.Apply(inst); err != nil {
			return "", err
		}
	}

	return BitsToString(clbits), nil
}

// QiskitBackend runs programs on IBM Quantum through the runtime REST API
type QiskitBackend struct {
	name    string
	client  *QiskitClient
	maxWait time.Duration
}

// NewQiskitBackend creates a backend bound to the client's configured device
func NewQiskitBackend(client *QiskitClient, maxWait time.Duration) *QiskitBackend {
	if maxWait <= 0 {
		maxWait = 2 * time.Minute
	}
	return &QiskitBackend{
		name:    "IBM-Qiskit-" + client.config.BackendName,
		client:  client,
		maxWait: maxWait,
	}
}

// Name returns the name of the Qiskit backend
func (q *QiskitBackend) Name() string {
	return q.name
}

// NoiseLevel returns the typical NISQ device readout error rate
func (q *QiskitBackend) NoiseLevel() float64 {
	return 0.02
}

// IsSimulator returns false for Qiskit
func (q *QiskitBackend) IsSimulator() bool {
	return false
}

// Execute submits program as a job and expands the returned counts into
// per-shot memory
func (q *QiskitBackend) Execute(ctx context.Context, program string, shots int) (*ExecutionResult, error) {
	if shots < 1 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}

	result, err := q.client.ExecuteCircuitSync(ctx, &QiskitCircuit{
		QASM:    program,
		Shots:   shots,
		Backend: q.client.config.BackendName,
	}, q.maxWait)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("job %s did not succeed: %s", result.JobID, result.StatusMsg)
	}

	memory := result.Memory
	if len(memory) == 0 {
		memory = expandCounts(result.Counts)
	}
	if len(memory) == 0 {
		return nil, ErrNoShots
	}

	// Qiskit prints registers most significant slot first
	for i, m := range memory {
		memory[i] = reverseString(strings.ReplaceAll(m, " ", ""))
	}

	return newExecutionResult(q.name, memory), nil
}

func expandCounts(counts map[string]int) []string {
	memory := make([]string, 0)
	for outcome, n := range counts {
		for i := 0; i < n; i++ {
			memory = append(memory, outcome)
		}
	}
	return memory
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
