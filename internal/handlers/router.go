package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	chatcore "github.com/jaskrrish/Go-QChat/internal/chat"
	"github.com/jaskrrish/Go-QChat/internal/ratelimit"
	teleportcore "github.com/jaskrrish/Go-QChat/internal/teleport"
)

// RouterConfig holds everything the HTTP layer needs
type RouterConfig struct {
	Chat        *chatcore.Service
	Teleporter  *teleportcore.Teleporter
	Limiter     ratelimit.Limiter // nil disables rate limiting
	CORSOrigins []string
	LogFile     string
	Logger      zerolog.Logger
}

// NewRouter builds the HTTP handler
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger.With().Str("component", "http").Logger()

	system := NewSystemHandler(cfg.Chat, cfg.Teleporter.Backend(), cfg.LogFile, logger)
	chatHandler := NewChatHandler(cfg.Chat, logger)
	quantumHandler := NewQuantumHandler(cfg.Teleporter, cfg.Chat, logger)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(loggingMiddleware(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if cfg.Limiter != nil {
		mux.Use(rateLimitMiddleware(cfg.Limiter, logger))
	}

	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	mux.Get("/", system.HomeHandler)
	mux.Get("/health", system.HealthHandler)
	mux.Get("/logs", system.LogsHandler)
	quantumHandler.LegacyRoutes(mux)

	mux.Route("/api/v1/chat", chatHandler.Routes)
	mux.Route("/api/v1/quantum", quantumHandler.Routes)

	return mux
}
