package quantum

import (
	"errors"
	"fmt"
	"strings"
)

// Bit represents a classical bit (0 or 1)
type Bit int

const (
	Zero Bit = 0
	One  Bit = 1
)

var (
	// ErrInvalidBit is returned for any bit value other than 0 or 1
	ErrInvalidBit = errors.New("bit value must be 0 or 1")
	// ErrUnencodableCharacter is returned when a character does not fit in 8 bits
	ErrUnencodableCharacter = errors.New("character cannot be encoded in 8 bits")
	// ErrInvalidProgram is returned when a QASM program cannot be parsed or executed
	ErrInvalidProgram = errors.New("invalid quantum program")
)

// Valid reports whether b is 0 or 1
func (b Bit) Valid() bool {
	return b == Zero || b == One
}

func (b Bit) String() string {
	if b == One {
		return "1"
	}
	return "0"
}

// Ket renders the bit as a computational basis state, e.g. |1⟩
func (b Bit) Ket() string {
	return fmt.Sprintf("|%s⟩", b)
}

// NewBit validates an integer bit value
func NewBit(v int) (Bit, error) {
	b := Bit(v)
	if !b.Valid() {
		return Zero, fmt.Errorf("%w: got %d", ErrInvalidBit, v)
	}
	return b, nil
}

// ParseBit parses the textual form "0" or "1". Anything else fails; there is no default.
func ParseBit(s string) (Bit, error) {
	switch s {
	case "0":
		return Zero, nil
	case "1":
		return One, nil
	default:
		return Zero, fmt.Errorf("%w: got %q", ErrInvalidBit, s)
	}
}

// ParseBits parses a string of '0'/'1' characters
func ParseBits(s string) ([]Bit, error) {
	bits := make([]Bit, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			bits[i] = Zero
		case '1':
			bits[i] = One
		default:
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidBit, s[i], i)
		}
	}
	return bits, nil
}

// BitsToString renders bits as a '0'/'1' string
func BitsToString(bits []Bit) string {
	var sb strings.Builder
	sb.Grow(len(bits))
	for _, bit := range bits {
		sb.WriteString(bit.String())
	}
	return sb.String()
}

// BitErrorRate is the fraction of positions where received differs from sent
func BitErrorRate(sent, received []Bit) (float64, error) {
	if len(sent) != len(received) {
		return 0, fmt.Errorf("cannot compare %d sent bits with %d received bits", len(sent), len(received))
	}
	if len(sent) == 0 {
		return 0, nil
	}

	flipped := 0
	for i, b := range sent {
		if received[i] != b {
			flipped++
		}
	}
	return float64(flipped) / float64(len(sent)), nil
}
