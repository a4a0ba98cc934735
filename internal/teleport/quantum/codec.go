package quantum

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// BitsPerChar is the fixed width of one encoded character
const BitsPerChar = 8

// EncodeText maps each character to its 8-bit code point, concatenated in
// character order. Characters above U+00FF do not fit and are rejected.
func EncodeText(text string) (string, error) {
	var sb strings.Builder
	sb.Grow(utf8.RuneCountInString(text) * BitsPerChar)

	pos := 0
	for _, r := range text {
		if r > 0xFF {
			return "", fmt.Errorf("%w: %q at position %d", ErrUnencodableCharacter, r, pos)
		}
		fmt.Fprintf(&sb, "%08b", r)
		pos++
	}

	return sb.String(), nil
}

// DecodeText converts a bit string back to text, 8 bits at a time.
// Trailing bits that do not form a full group are dropped.
func DecodeText(bits string) (string, error) {
	full := len(bits) - len(bits)%BitsPerChar

	var sb strings.Builder
	for i := 0; i < full; i += BitsPerChar {
		var code rune
		for j := 0; j < BitsPerChar; j++ {
			code <<= 1
			switch bits[i+j] {
			case '0':
			case '1':
				code |= 1
			default:
				return "", fmt.Errorf("%w: %q at position %d", ErrInvalidBit, bits[i+j], i+j)
			}
		}
		sb.WriteRune(code)
	}

	return sb.String(), nil
}

// FormatBinary splits a bit string into space separated 8-bit groups for display
func FormatBinary(bits string) string {
	groups := make([]string, 0, (len(bits)+BitsPerChar-1)/BitsPerChar)
	for i := 0; i < len(bits); i += BitsPerChar {
		end := i + BitsPerChar
		if end > len(bits) {
			end = len(bits)
		}
		groups = append(groups, bits[i:end])
	}
	return strings.Join(groups, " ")
}
