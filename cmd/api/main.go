package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	chatcore "github.com/jaskrrish/Go-QChat/internal/chat"
	"github.com/jaskrrish/Go-QChat/internal/config"
	"github.com/jaskrrish/Go-QChat/internal/handlers"
	"github.com/jaskrrish/Go-QChat/internal/logging"
	"github.com/jaskrrish/Go-QChat/internal/ratelimit"
	"github.com/jaskrrish/Go-QChat/internal/scheduler"
	"github.com/jaskrrish/Go-QChat/internal/store"
	teleportcore "github.com/jaskrrish/Go-QChat/internal/teleport"
	"github.com/jaskrrish/Go-QChat/internal/teleport/quantum"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quantum-chat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing store")
		}
	}()

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	generator := quantum.NewClassiqGenerator(quantum.ClassiqConfig{
		APIKey:  cfg.ClassiqAPIKey,
		BaseURL: cfg.ClassiqBaseURL,
	}, logger)

	teleporter := teleportcore.NewTeleporter(generator, backend, teleportcore.Options{
		Shots:            cfg.QuantumShots,
		MaxMessageLength: cfg.MaxMessageLength,
	}, logger)
	service := chatcore.NewService(db, teleporter, logger)

	sched, err := scheduler.New(logger)
	if err != nil {
		return err
	}
	err = sched.Add(scheduler.Job{
		Name:     "presence-sweep",
		Interval: cfg.PresenceSweepInterval,
		Run: func(ctx context.Context) error {
			_, err := service.MarkIdleUsersOffline(ctx, cfg.PresenceIdleTimeout)
			return err
		},
	})
	if err != nil {
		return err
	}

	limiter, limiterCloser, err := newLimiter(ctx, cfg, sched, logger)
	if err != nil {
		return err
	}
	if limiterCloser != nil {
		defer func() {
			if err := limiterCloser.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing redis client")
			}
		}()
	}

	server := &http.Server{
		Addr: cfg.Addr(),
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Chat:        service,
			Teleporter:  teleporter,
			Limiter:     limiter,
			CORSOrigins: cfg.CORSOrigins,
			LogFile:     cfg.LogFile,
			Logger:      logger,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sched.Start()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr).
			Str("backend", backend.Name()).
			Str("store", cfg.DatabaseDriver).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := sched.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("Scheduler shutdown failed")
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}

func newBackend(cfg *config.Config) (quantum.Backend, error) {
	if cfg.QuantumBackend != config.BackendQiskit {
		return quantum.NewSimulatorBackend(cfg.QuantumNoise, cfg.QuantumSeed), nil
	}

	client, err := quantum.NewQiskitClient(&quantum.QiskitConfig{
		APIKey:      cfg.QiskitAPIKey,
		CRN:         cfg.QiskitCRN,
		BaseURL:     cfg.QiskitBaseURL,
		BackendName: cfg.QiskitBackend,
	})
	if err != nil {
		return nil, err
	}
	return quantum.NewQiskitBackend(client, cfg.QiskitMaxWait), nil
}

// newLimiter prefers a shared redis limiter and falls back to an in-process
// one. The closer is non-nil when a redis connection was opened.
func newLimiter(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, logger zerolog.Logger) (ratelimit.Limiter, io.Closer, error) {
	if cfg.APIRateLimit == 0 {
		return nil, nil, nil
	}

	if cfg.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client, err := ratelimit.NewRedisClient(pingCtx, cfg.RedisURL)
		if err == nil {
			logger.Info().Msg("Using redis rate limiter")
			return ratelimit.NewRedisLimiter(client, cfg.APIRateLimit, time.Minute), client, nil
		}
		logger.Warn().Err(err).Msg("Redis unavailable, using in-process rate limiter")
	}

	limiter := ratelimit.NewMemoryLimiter(cfg.APIRateLimit, time.Minute)
	err := sched.Add(scheduler.Job{
		Name:     "ratelimit-prune",
		Interval: 10 * time.Minute,
		Run: func(context.Context) error {
			if n := limiter.Prune(30 * time.Minute); n > 0 {
				logger.Debug().Int("clients", n).Msg("Pruned idle rate limit entries")
			}
			return nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return limiter, nil, nil
}
