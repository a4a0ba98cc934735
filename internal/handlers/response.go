package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jaskrrish/Go-QChat/internal/models"
	"github.com/jaskrrish/Go-QChat/internal/models/chat"
	"github.com/jaskrrish/Go-QChat/internal/models/teleport"
	"github.com/jaskrrish/Go-QChat/internal/teleport/quantum"
)

const maxBodyBytes = 1 << 20

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithDomainError maps service errors onto status codes
func respondWithDomainError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := statusFor(err)
	message := err.Error()

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
		if !errors.Is(err, teleport.ErrTeleportationFailed) {
			message = "internal server error"
		}
	}

	respondWithError(w, status, message)
}

func statusFor(err error) int {
	var chatErr *chat.ChatError

	switch {
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, quantum.ErrInvalidBit),
		errors.Is(err, quantum.ErrUnencodableCharacter),
		errors.Is(err, chat.ErrUsernameTaken),
		errors.Is(err, chat.ErrEmailTaken):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrSenderNotInRoom),
		errors.Is(err, chat.ErrReceiverNotInRoom):
		return http.StatusForbidden
	case errors.As(err, &chatErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON value into v. An empty body decodes to the
// zero value; anything after the value is rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return models.Invalid("invalid request body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return models.Invalid("invalid request body")
	}
	return nil
}
