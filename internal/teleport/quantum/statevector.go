package quantum

import (
	"fmt"
	"math"
	"math/rand"
)

const probabilityEpsilon = 1e-12

// StateVector is a dense n-qubit register. Qubit k is bit k of the basis
// state index.
type StateVector struct {
	numQubits int
	amps      []complex128
}

// NewStateVector returns n qubits initialised to |0...0⟩
func NewStateVector(numQubits int) *StateVector {
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &StateVector{numQubits: numQubits, amps: amps}
}

func (s *StateVector) checkQubit(qubit int) error {
	if qubit < 0 || qubit >= s.numQubits {
		return fmt.Errorf("qubit %d out of range [0,%d)", qubit, s.numQubits)
	}
	return nil
}

// Amplitudes returns a copy of the amplitudes
func (s *StateVector) Amplitudes() []complex128 {
	out := make([]complex128, len(s.amps))
	copy(out, s.amps)
	return out
}

// H applies a Hadamard gate
func (s *StateVector) H(qubit int) error {
	if err := s.checkQubit(qubit); err != nil {
		return err
	}

	mask := 1 << qubit
	for i := range s.amps {
		if i&mask != 0 {
			continue
		}
		a0, a1 := s.amps[i], s.amps[i|mask]
		s.amps[i] = (a0 + a1) * complex(math.Sqrt2/2, 0)
		s.amps[i|mask] = (a0 - a1) * complex(math.Sqrt2/2, 0)
	}
	return nil
}

// X swaps the |0⟩ and |1⟩ amplitudes of a qubit
func (s *StateVector) X(qubit int) error {
	if err := s.checkQubit(qubit); err != nil {
		return err
	}

	mask := 1 << qubit
	for i := range s.amps {
		if i&mask == 0 {
			s.amps[i], s.amps[i|mask] = s.amps[i|mask], s.amps[i]
		}
	}
	return nil
}

// Z negates amplitudes where the qubit is 1
func (s *StateVector) Z(qubit int) error {
	if err := s.checkQubit(qubit); err != nil {
		return err
	}

	mask := 1 << qubit
	for i := range s.amps {
		if i&mask != 0 {
			s.amps[i] = -s.amps[i]
		}
	}
	return nil
}

// CX flips target where control is 1
func (s *StateVector) CX(control, target int) error {
	if err := s.checkQubit(control); err != nil {
		return err
	}
	if err := s.checkQubit(target); err != nil {
		return err
	}
	if control == target {
		return fmt.Errorf("control and target must differ")
	}

	cmask, tmask := 1<<control, 1<<target
	for i := range s.amps {
		// visit each swapped pair once, from the target=0 side
		if i&cmask != 0 && i&tmask == 0 {
			s.amps[i], s.amps[i|tmask] = s.amps[i|tmask], s.amps[i]
		}
	}
	return nil
}

// Probability returns the probability of reading 1 from qubit
func (s *StateVector) Probability(qubit int) float64 {
	mask := 1 << qubit
	p := 0.0
	for i, a := range s.amps {
		if i&mask != 0 {
			p += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	return p
}

// Measure performs a projective measurement, collapsing and renormalising
// the state
func (s *StateVector) Measure(qubit int, rng *rand.Rand) (Bit, error) {
	if err := s.checkQubit(qubit); err != nil {
		return Zero, err
	}

	prob1 := s.Probability(qubit)
	var result Bit
	switch {
	case prob1 < probabilityEpsilon:
		result = Zero
	case prob1 > 1-probabilityEpsilon:
		result = One
	case rng.Float64() < prob1:
		result = One
	default:
		result = Zero
	}

	mask := 1 << qubit
	norm := 0.0
	for i, a := range s.amps {
		if (i&mask != 0) != (result == One) {
			s.amps[i] = 0
			continue
		}
		norm += real(a)*real(a) + imag(a)*imag(a)
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range s.amps {
			s.amps[i] /= complex(norm, 0)
		}
	}

	return result, nil
}

// Apply runs one gate instruction
func (s *StateVector) Apply(inst Instruction) error {
	switch inst.Name {
	case "x":
		return s.X(inst.Qubits[0])
	case "h":
		return s.H(inst.Qubits[0])
	case "z":
		return s.Z(inst.Qubits[0])
	case "cx":
		return s.CX(inst.Qubits[0], inst.Qubits[1])
	default:
		return fmt.Errorf("%w: unsupported gate %q", ErrInvalidProgram, inst.Name)
	}
}
