package teleport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jaskrrish/Go-QChat/internal/models"
	"github.com/jaskrrish/Go-QChat/internal/teleport/quantum"
)

// Defaults for the legacy demo routes
const (
	DefaultSender   = "User A"
	DefaultReceiver = "User B"
)

// Outcome is the result of teleporting one bit
type Outcome struct {
	SentBit            int                  `json:"sent_bit"`
	ReceivedBit        int                  `json:"received_bit"`
	ClassicalBits      string               `json:"classical_bits"`
	Success            bool                 `json:"success"`
	ReceiverState      string               `json:"receiver_state"`
	SuccessProbability float64              `json:"success_probability"`
	Counts             map[string]int       `json:"counts,omitempty"`
	Probabilities      map[string]float64   `json:"probabilities,omitempty"`
	Backend            string               `json:"backend"`
	CircuitSource      string               `json:"circuit_source"`
	CircuitDigest      string               `json:"circuit_digest"`
	Circuit            *quantum.CircuitData `json:"circuit_data,omitempty"`
}

// MessageResult is the result of teleporting a text message bit by bit
type MessageResult struct {
	OriginalMessage          string    `json:"original_message"`
	BinaryMessage            string    `json:"binary_message"`
	TeleportationResults     []Outcome `json:"teleportation_results"`
	ReconstructedMessage     string    `json:"reconstructed_message"`
	MessageLengthBits        int       `json:"message_length_bits"`
	MessageLengthChars       int       `json:"message_length_chars"`
	SuccessfulTeleportations int       `json:"successful_teleportations"`
	SuccessRate              float64   `json:"success_rate"`
	BitErrorRate             float64   `json:"bit_error_rate"`
}

// SequenceResult is the result of teleporting an explicit bit sequence
type SequenceResult struct {
	OriginalSequence         []string  `json:"original_sequence"`
	TeleportedSequence       []string  `json:"teleported_sequence"`
	IndividualResults        []Outcome `json:"individual_results"`
	TotalQubits              int       `json:"total_qubits"`
	SuccessfulTeleportations int       `json:"successful_teleportations"`
	SuccessRate              float64   `json:"success_rate"`
	BitErrorRate             float64   `json:"bit_error_rate"`
}

// CircuitView describes the circuit for one bit without running it
type CircuitView struct {
	Bit              int                 `json:"bit"`
	CircuitText      string              `json:"circuit_text"`
	CircuitData      quantum.CircuitData `json:"circuit_data"`
	NumQubits        int                 `json:"num_qubits"`
	NumClassicalBits int                 `json:"num_classical_bits"`
	Depth            int                 `json:"depth"`
	GateCount        map[string]int      `json:"gate_count"`
	Digest           string              `json:"digest"`
	Source           string              `json:"source"`
}

// BitRequest is the legacy single-bit teleport body
type BitRequest struct {
	State string `json:"state"`
}

// SendMessageRequest is the legacy text teleport body
type SendMessageRequest struct {
	Message  string `json:"message"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

// SendMessageResponse wraps a text teleportation for the legacy route
type SendMessageResponse struct {
	Status            string         `json:"status"`
	Message           string         `json:"message"`
	Sender            string         `json:"sender"`
	Receiver          string         `json:"receiver"`
	OriginalMessage   string         `json:"original_message"`
	TeleportationData *MessageResult `json:"teleportation_data"`
	Timestamp         time.Time      `json:"timestamp"`
	Note              string         `json:"note"`
}

// ReceiveMessageRequest hands a teleportation result to the receiver
type ReceiveMessageRequest struct {
	TeleportationData struct {
		ReconstructedMessage string `json:"reconstructed_message"`
	} `json:"teleportation_data"`
	Receiver string `json:"receiver"`
}

// ReceiveMessageResponse acknowledges a received message
type ReceiveMessageResponse struct {
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	Receiver        string    `json:"receiver"`
	ReceivedMessage string    `json:"received_message"`
	Timestamp       time.Time `json:"timestamp"`
	Note            string    `json:"note"`
}

// QuantumTeleportRequest teleports a bit between two room participants
type QuantumTeleportRequest struct {
	SenderID       string  `json:"sender_id" validate:"required,uuid"`
	ReceiverID     string  `json:"receiver_id" validate:"required,uuid"`
	ClassicalBit   *int    `json:"classical_bit" validate:"required,min=0,max=1"`
	RoomID         string  `json:"room_id" validate:"required,uuid"`
	MessageContent *string `json:"message_content,omitempty"`
}

// QuantumTeleportResponse reports a persisted room teleportation
type QuantumTeleportResponse struct {
	Success           bool      `json:"success"`
	SenderID          string    `json:"sender_id"`
	ReceiverID        string    `json:"receiver_id"`
	SentBit           int       `json:"sent_bit"`
	ReceivedBit       int       `json:"received_bit"`
	ClassicalBits     string    `json:"classical_bits"`
	ReceiverState     string    `json:"receiver_state"`
	TeleportationData *Outcome  `json:"teleportation_data"`
	Timestamp         time.Time `json:"timestamp"`
	MessageID         string    `json:"message_id,omitempty"`
}

// SimulateRequest runs a teleportation without persisting anything
type SimulateRequest struct {
	ClassicalBit *int `json:"classical_bit" validate:"required,min=0,max=1"`
}

// TextRequest teleports arbitrary text
type TextRequest struct {
	Text string `json:"text"`
}

// SequenceRequest teleports an explicit list of bits
type SequenceRequest struct {
	QubitSequence []string `json:"qubit_sequence" validate:"required,min=1,dive,oneof=0 1"`
}

// Validate checks the bit value
func (r *BitRequest) Validate() (quantum.Bit, error) {
	bit, err := quantum.ParseBit(r.State)
	if err != nil {
		return quantum.Zero, models.Invalid("state must be '0' or '1'")
	}
	return bit, nil
}

// Validate rejects empty messages and fills in default parties
func (r *SendMessageRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if r.Sender == "" {
		r.Sender = DefaultSender
	}
	if r.Receiver == "" {
		r.Receiver = DefaultReceiver
	}
	return nil
}

// Validate fills in the default receiver
func (r *ReceiveMessageRequest) Validate() error {
	if r.Receiver == "" {
		r.Receiver = DefaultReceiver
	}
	return nil
}

// Validate validates a room teleport request
func (r *QuantumTeleportRequest) Validate() error {
	return models.ValidateStruct(r)
}

// Validate validates a simulation request
func (r *SimulateRequest) Validate() error {
	return models.ValidateStruct(r)
}

// Validate validates a sequence request
func (r *SequenceRequest) Validate() error {
	return models.ValidateStruct(r)
}

var (
	// ErrEmptyMessage is returned for blank text on routes that require content
	ErrEmptyMessage = fmt.Errorf("%w: message cannot be empty", models.ErrInvalidRequest)
	// ErrMessageTooLong is returned when text exceeds the configured maximum
	ErrMessageTooLong = fmt.Errorf("%w: message too long", models.ErrInvalidRequest)
	// ErrTeleportationFailed wraps every backend failure
	ErrTeleportationFailed = errors.New("quantum teleportation failed")
)
