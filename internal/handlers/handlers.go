package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaskrrish/Go-QChat/internal/logging"
)

// Version of the API
const Version = "1.0.0"

// logTailLines is how many log lines GET /logs returns
const logTailLines = 50

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves service info, health and logs
type SystemHandler struct {
	store   Pinger
	backend string
	logFile string
	logger  zerolog.Logger
}

// NewSystemHandler creates a system handler
func NewSystemHandler(store Pinger, backend, logFile string, logger zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		store:   store,
		backend: backend,
		logFile: logFile,
		logger:  logger,
	}
}

// HomeHandler handles requests to the root path
func (h *SystemHandler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Quantum Teleportation Chat API",
		"version": Version,
		"status":  "running",
		"backend": h.backend,
		"endpoints": map[string]string{
			"teleport":        "/teleport",
			"send_message":    "/send-message",
			"receive_message": "/receive-message",
			"logs":            "/logs",
			"chat":            "/api/v1/chat",
			"quantum":         "/api/v1/quantum",
		},
	})
}

// HealthHandler handles health check requests
func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code, storeStatus := "healthy", http.StatusOK, "ok"
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Store health check failed")
		status, code, storeStatus = "degraded", http.StatusServiceUnavailable, err.Error()
	}

	respondWithJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "quantum-chat-api",
		"backend":   h.backend,
		"store":     storeStatus,
	})
}

// LogsHandler handles GET /logs and returns the tail of the log file
func (h *SystemHandler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	if h.logFile == "" {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"logs": []string{}, "count": 0})
		return
	}

	lines, err := logging.Tail(h.logFile, logTailLines)
	if err != nil {
		h.logger.Error().Err(err).Str("file", h.logFile).Msg("Failed to read log file")
		respondWithError(w, http.StatusInternalServerError, "failed to read logs")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  lines,
		"count": len(lines),
	})
}
