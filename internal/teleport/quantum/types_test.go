package quantum

import (
	"errors"
	"testing"
)

// TestBitString tests the String and Ket methods for Bit
func TestBitString(t *testing.T) {
	tests := []struct {
		name string
		bit  Bit
		str  string
		ket  string
	}{
		{"Zero", Zero, "0", "|0⟩"},
		{"One", One, "1", "|1⟩"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bit.String(); got != tt.str {
				t.Errorf("expected %s, got %s", tt.str, got)
			}
			if got := tt.bit.Ket(); got != tt.ket {
				t.Errorf("expected %s, got %s", tt.ket, got)
			}
		})
	}
}

// TestBitOperations tests basic bit operations
func TestBitOperations(t *testing.T) {
	t.Run("Bit constants", func(t *testing.T) {
		if Zero != 0 {
			t.Error("Zero should be 0")
		}
		if One != 1 {
			t.Error("One should be 1")
		}
	})

	t.Run("Bit XOR", func(t *testing.T) {
		if Zero^One != One {
			t.Error("0 XOR 1 should be 1")
		}
		if One^One != Zero {
			t.Error("1 XOR 1 should be 0")
		}
	})

	t.Run("Validity", func(t *testing.T) {
		if !Zero.Valid() || !One.Valid() {
			t.Error("0 and 1 should be valid")
		}
		if Bit(2).Valid() || Bit(-1).Valid() {
			t.Error("values outside 0/1 should be invalid")
		}
	})
}

// TestParseBit tests that only "0" and "1" are accepted
func TestParseBit(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Bit
		shouldError bool
	}{
		{"Zero", "0", Zero, false},
		{"One", "1", One, false},
		{"Padded", " 1 ", Zero, true},
		{"Trailing space", "1 ", Zero, true},
		{"Whitespace", "\t0\n", Zero, true},
		{"Two", "2", Zero, true},
		{"Empty", "", Zero, true},
		{"Word", "one", Zero, true},
		{"Multiple bits", "01", Zero, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bit, err := ParseBit(tt.input)
			if tt.shouldError {
				if !errors.Is(err, ErrInvalidBit) {
					t.Errorf("expected ErrInvalidBit, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bit != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, bit)
			}
		})
	}
}

// TestNewBit tests integer bit validation
func TestNewBit(t *testing.T) {
	for _, v := range []int{0, 1} {
		if _, err := NewBit(v); err != nil {
			t.Errorf("NewBit(%d) failed: %v", v, err)
		}
	}
	for _, v := range []int{-1, 2, 42} {
		if _, err := NewBit(v); !errors.Is(err, ErrInvalidBit) {
			t.Errorf("NewBit(%d): expected ErrInvalidBit, got %v", v, err)
		}
	}
}

// TestParseBits tests bit string parsing and rendering
func TestParseBits(t *testing.T) {
	bits, err := ParseBits("0110")
	if err != nil {
		t.Fatalf("ParseBits failed: %v", err)
	}

	expected := []Bit{Zero, One, One, Zero}
	for i := range expected {
		if bits[i] != expected[i] {
			t.Errorf("bit %d: expected %v, got %v", i, expected[i], bits[i])
		}
	}

	if got := BitsToString(bits); got != "0110" {
		t.Errorf("expected 0110, got %s", got)
	}

	if _, err := ParseBits("01x0"); !errors.Is(err, ErrInvalidBit) {
		t.Errorf("expected ErrInvalidBit, got %v", err)
	}
}

// TestBitErrorRate tests error rate calculation
func TestBitErrorRate(t *testing.T) {
	tests := []struct {
		name        string
		sent        []Bit
		received    []Bit
		expected    float64
		shouldError bool
	}{
		{"Identical", []Bit{Zero, One, One}, []Bit{Zero, One, One}, 0.0, false},
		{"One mismatch", []Bit{Zero, One, One, Zero}, []Bit{Zero, One, Zero, Zero}, 0.25, false},
		{"All different", []Bit{Zero, One}, []Bit{One, Zero}, 1.0, false},
		{"Empty", []Bit{}, []Bit{}, 0.0, false},
		{"Length mismatch", []Bit{Zero}, []Bit{Zero, One}, 0.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := BitErrorRate(tt.sent, tt.received)
			if tt.shouldError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rate != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, rate)
			}
		})
	}
}
