package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	chatcore "github.com/jaskrrish/Go-QChat/internal/chat"
	"github.com/jaskrrish/Go-QChat/internal/models"
	"github.com/jaskrrish/Go-QChat/internal/models/teleport"
	teleportcore "github.com/jaskrrish/Go-QChat/internal/teleport"
	"github.com/jaskrrish/Go-QChat/internal/teleport/quantum"
)

// QuantumHandler manages teleportation requests
type QuantumHandler struct {
	teleporter *teleportcore.Teleporter
	chat       *chatcore.Service
	logger     zerolog.Logger
}

// NewQuantumHandler creates a quantum handler
func NewQuantumHandler(teleporter *teleportcore.Teleporter, chat *chatcore.Service, logger zerolog.Logger) *QuantumHandler {
	return &QuantumHandler{
		teleporter: teleporter,
		chat:       chat,
		logger:     logger,
	}
}

// Routes mounts the /api/v1/quantum endpoints
func (h *QuantumHandler) Routes(r chi.Router) {
	r.Post("/teleport", h.RoomTeleportHandler)
	r.Get("/circuit/{bit}", h.CircuitHandler)
	r.Post("/simulate", h.SimulateHandler)
	r.Post("/teleport-text", h.TeleportTextHandler)
	r.Post("/teleport-sequence", h.TeleportSequenceHandler)
}

// LegacyRoutes mounts the root level demo endpoints
func (h *QuantumHandler) LegacyRoutes(r chi.Router) {
	r.Post("/teleport", h.TeleportBitHandler)
	r.Post("/send-message", h.SendMessageHandler)
	r.Post("/receive-message", h.ReceiveMessageHandler)
}

// TeleportBitHandler handles POST /teleport {state}
func (h *QuantumHandler) TeleportBitHandler(w http.ResponseWriter, r *http.Request) {
	var req teleport.BitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	bit, err := req.Validate()
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	outcome, err := h.teleporter.TeleportBit(r.Context(), bit)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

// SendMessageHandler handles POST /send-message
func (h *QuantumHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req teleport.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	result, err := h.teleporter.TeleportText(r.Context(), req.Message)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info().
		Str("sender", req.Sender).
		Str("receiver", req.Receiver).
		Int("bits", result.MessageLengthBits).
		Float64("success_rate", result.SuccessRate).
		Msg("Message teleported")

	respondWithJSON(w, http.StatusOK, teleport.SendMessageResponse{
		Status:            "success",
		Message:           "Message sent via quantum teleportation",
		Sender:            req.Sender,
		Receiver:          req.Receiver,
		OriginalMessage:   req.Message,
		TeleportationData: result,
		Timestamp:         time.Now().UTC(),
		Note:              "Each bit was teleported through its own three qubit circuit",
	})
}

// ReceiveMessageHandler handles POST /receive-message
func (h *QuantumHandler) ReceiveMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req teleport.ReceiveMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	received := req.TeleportationData.ReconstructedMessage
	h.logger.Info().Str("receiver", req.Receiver).Int("chars", len([]rune(received))).Msg("Message received")

	respondWithJSON(w, http.StatusOK, teleport.ReceiveMessageResponse{
		Status:          "success",
		Message:         "Message received",
		Receiver:        req.Receiver,
		ReceivedMessage: received,
		Timestamp:       time.Now().UTC(),
		Note:            "Message reconstructed from teleported qubit measurements",
	})
}

// RoomTeleportHandler handles POST /api/v1/quantum/teleport
func (h *QuantumHandler) RoomTeleportHandler(w http.ResponseWriter, r *http.Request) {
	var req teleport.QuantumTeleportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	resp, err := h.chat.SendQuantumBit(r.Context(), &req)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// CircuitHandler handles GET /api/v1/quantum/circuit/{bit}
func (h *QuantumHandler) CircuitHandler(w http.ResponseWriter, r *http.Request) {
	bit, err := quantum.ParseBit(chi.URLParam(r, "bit"))
	if err != nil {
		respondWithDomainError(w, h.logger, models.Invalid("bit must be 0 or 1"))
		return
	}

	view, err := h.teleporter.Visualize(r.Context(), bit)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// SimulateHandler handles POST /api/v1/quantum/simulate
func (h *QuantumHandler) SimulateHandler(w http.ResponseWriter, r *http.Request) {
	var req teleport.SimulateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	bit, err := quantum.NewBit(*req.ClassicalBit)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	outcome, err := h.teleporter.TeleportBit(r.Context(), bit)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

// TeleportTextHandler handles POST /api/v1/quantum/teleport-text
func (h *QuantumHandler) TeleportTextHandler(w http.ResponseWriter, r *http.Request) {
	var req teleport.TextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	result, err := h.teleporter.TeleportText(r.Context(), req.Text)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// TeleportSequenceHandler handles POST /api/v1/quantum/teleport-sequence
func (h *QuantumHandler) TeleportSequenceHandler(w http.ResponseWriter, r *http.Request) {
	var req teleport.SequenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	result, err := h.teleporter.TeleportSequence(r.Context(), req.QubitSequence)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
