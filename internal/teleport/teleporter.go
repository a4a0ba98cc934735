// Package teleport runs the bit and text teleportation pipeline on top of a
// circuit generator and a quantum backend.
package teleport

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/jaskrrish/Go-QChat/internal/models"
	"github.com/jaskrrish/Go-QChat/internal/models/teleport"
	"github.com/jaskrrish/Go-QChat/internal/teleport/quantum"
)

// Defaults
const (
	DefaultShots            = 1
	DefaultMaxMessageLength = 500
)

// Options tunes a Teleporter
type Options struct {
	// Shots per circuit execution
	Shots int
	// MaxMessageLength in characters for text teleportation, 0 disables the check
	MaxMessageLength int
}

// Teleporter is the teleportation orchestrator. It is safe for concurrent
// use as long as its backend is.
type Teleporter struct {
	generator        quantum.CircuitGenerator
	backend          quantum.Backend
	shots            int
	maxMessageLength int
	logger           zerolog.Logger
}

// NewTeleporter creates a teleporter
func NewTeleporter(generator quantum.CircuitGenerator, backend quantum.Backend, opts Options, logger zerolog.Logger) *Teleporter {
	if generator == nil {
		generator = quantum.ManualGenerator{}
	}
	if opts.Shots < 1 {
		opts.Shots = DefaultShots
	}
	if opts.MaxMessageLength < 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}

	return &Teleporter{
		generator:        generator,
		backend:          backend,
		shots:            opts.Shots,
		maxMessageLength: opts.MaxMessageLength,
		logger:           logger.With().Str("component", "teleporter").Logger(),
	}
}

// Backend returns the backend name
func (t *Teleporter) Backend() string {
	return t.backend.Name()
}

// Shots returns the configured repetitions per circuit
func (t *Teleporter) Shots() int {
	return t.shots
}

// MaxMessageLength returns the text limit in characters
func (t *Teleporter) MaxMessageLength() int {
	return t.maxMessageLength
}

// TeleportBit teleports one bit and includes the circuit description
func (t *Teleporter) TeleportBit(ctx context.Context, bit quantum.Bit) (*teleport.Outcome, error) {
	outcome, err := t.teleport(ctx, bit, true)
	if err != nil {
		return nil, err
	}

	t.logger.Info().
		Int("sent_bit", outcome.SentBit).
		Int("received_bit", outcome.ReceivedBit).
		Str("classical_bits", outcome.ClassicalBits).
		Bool("success", outcome.Success).
		Msg("Bit teleported")

	return outcome, nil
}

func (t *Teleporter) teleport(ctx context.Context, bit quantum.Bit, withCircuit bool) (*teleport.Outcome, error) {
	circuit, err := t.generator.Generate(ctx, bit)
	if err != nil {
		if errors.Is(err, quantum.ErrInvalidBit) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", teleport.ErrTeleportationFailed, err)
	}

	result, err := t.backend.Execute(ctx, circuit.Program, t.shots)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", teleport.ErrTeleportationFailed, err)
	}
	if len(result.Memory) == 0 {
		return nil, fmt.Errorf("%w: %w", teleport.ErrTeleportationFailed, quantum.ErrNoShots)
	}

	first := result.Memory[0]
	if len(first) <= quantum.TeleportOutputSlot {
		return nil, fmt.Errorf("%w: malformed measurement %q", teleport.ErrTeleportationFailed, first)
	}
	received, err := quantum.ParseBit(first[quantum.TeleportOutputSlot : quantum.TeleportOutputSlot+1])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", teleport.ErrTeleportationFailed, err)
	}

	matching := 0
	for _, m := range result.Memory {
		if len(m) > quantum.TeleportOutputSlot && m[quantum.TeleportOutputSlot] == bit.String()[0] {
			matching++
		}
	}

	outcome := &teleport.Outcome{
		SentBit:            int(bit),
		ReceivedBit:        int(received),
		ClassicalBits:      first,
		Success:            received == bit,
		ReceiverState:      received.Ket(),
		SuccessProbability: float64(matching) / float64(len(result.Memory)),
		Backend:            result.Backend,
		CircuitSource:      circuit.Source,
		CircuitDigest:      circuit.Digest,
	}
	if withCircuit {
		data := circuit.Data
		outcome.Circuit = &data
		outcome.Counts = result.Counts
		outcome.Probabilities = quantum.Probabilities(result.Counts)
	}

	return outcome, nil
}

// TeleportText encodes text, teleports every bit in order and rebuilds the
// text from the received bits
func (t *Teleporter) TeleportText(ctx context.Context, text string) (*teleport.MessageResult, error) {
	chars := utf8.RuneCountInString(text)
	if t.maxMessageLength > 0 && chars > t.maxMessageLength {
		return nil, fmt.Errorf("%w: %d characters exceeds the limit of %d", teleport.ErrMessageTooLong, chars, t.maxMessageLength)
	}

	binary, err := quantum.EncodeText(text)
	if err != nil {
		return nil, err
	}

	t.logger.Info().Int("chars", chars).Int("bits", len(binary)).Msg("Starting text teleportation")

	sent, err := quantum.ParseBits(binary)
	if err != nil {
		return nil, err
	}

	outcomes := make([]teleport.Outcome, 0, len(sent))
	received := make([]quantum.Bit, 0, len(sent))
	successes := 0

	for i, bit := range sent {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", teleport.ErrTeleportationFailed, err)
		}

		outcome, err := t.teleport(ctx, bit, false)
		if err != nil {
			t.logger.Error().Err(err).Int("bit_index", i).Msg("Teleportation failed")
			return nil, err
		}
		t.logger.Debug().Int("bit_index", i).Int("sent_bit", outcome.SentBit).Int("received_bit", outcome.ReceivedBit).Msg("Bit teleported")

		if outcome.Success {
			successes++
		}
		received = append(received, quantum.Bit(outcome.ReceivedBit))
		outcomes = append(outcomes, *outcome)
	}

	reconstructed, err := quantum.DecodeText(quantum.BitsToString(received))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", teleport.ErrTeleportationFailed, err)
	}
	errorRate, err := quantum.BitErrorRate(sent, received)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", teleport.ErrTeleportationFailed, err)
	}

	t.logger.Info().
		Int("bits", len(binary)).
		Int("successful", successes).
		Bool("intact", reconstructed == text).
		Msg("Text teleportation complete")

	return &teleport.MessageResult{
		OriginalMessage:          text,
		BinaryMessage:            binary,
		TeleportationResults:     outcomes,
		ReconstructedMessage:     reconstructed,
		MessageLengthBits:        len(binary),
		MessageLengthChars:       chars,
		SuccessfulTeleportations: successes,
		SuccessRate:              rate(successes, len(binary)),
		BitErrorRate:             errorRate,
	}, nil
}

// TeleportSequence teleports an explicit list of "0"/"1" values
func (t *Teleporter) TeleportSequence(ctx context.Context, sequence []string) (*teleport.SequenceResult, error) {
	if len(sequence) == 0 {
		return nil, models.Invalid("qubit sequence must be a non-empty list")
	}

	bits := make([]quantum.Bit, len(sequence))
	for i, s := range sequence {
		bit, err := quantum.ParseBit(s)
		if err != nil {
			return nil, models.Invalid("invalid qubit value %q at position %d, must be '0' or '1'", s, i)
		}
		bits[i] = bit
	}

	result := &teleport.SequenceResult{
		OriginalSequence:   sequence,
		TeleportedSequence: make([]string, 0, len(bits)),
		IndividualResults:  make([]teleport.Outcome, 0, len(bits)),
		TotalQubits:        len(bits),
	}

	received := make([]quantum.Bit, 0, len(bits))
	for _, bit := range bits {
		outcome, err := t.teleport(ctx, bit, false)
		if err != nil {
			return nil, err
		}
		if outcome.Success {
			result.SuccessfulTeleportations++
		}
		received = append(received, quantum.Bit(outcome.ReceivedBit))
		result.TeleportedSequence = append(result.TeleportedSequence, quantum.Bit(outcome.ReceivedBit).String())
		result.IndividualResults = append(result.IndividualResults, *outcome)
	}
	result.SuccessRate = rate(result.SuccessfulTeleportations, result.TotalQubits)

	errorRate, err := quantum.BitErrorRate(bits, received)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", teleport.ErrTeleportationFailed, err)
	}
	result.BitErrorRate = errorRate

	return result, nil
}

// Visualize describes the circuit for bit without executing it
func (t *Teleporter) Visualize(ctx context.Context, bit quantum.Bit) (*teleport.CircuitView, error) {
	circuit, err := t.generator.Generate(ctx, bit)
	if err != nil {
		return nil, err
	}

	return &teleport.CircuitView{
		Bit:              int(bit),
		CircuitText:      circuit.Program,
		CircuitData:      circuit.Data,
		NumQubits:        circuit.NumQubits,
		NumClassicalBits: circuit.NumClassical,
		Depth:            circuit.Depth,
		GateCount:        circuit.GateCounts,
		Digest:           circuit.Digest,
		Source:           circuit.Source,
	}, nil
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
