package logging

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

type gocronLogger struct {
	logger zerolog.Logger
}

// NewGocronLogger adapts a zerolog logger to gocron.Logger. gocron passes
// alternating key/value arguments which become log fields.
func NewGocronLogger(logger zerolog.Logger) gocron.Logger {
	return &gocronLogger{logger: logger.With().Str("component", "scheduler").Logger()}
}

func (l *gocronLogger) Debug(msg string, args ...any) {
	l.logger.Debug().Fields(args).Msg(msg)
}

func (l *gocronLogger) Info(msg string, args ...any) {
	l.logger.Info().Fields(args).Msg(msg)
}

func (l *gocronLogger) Warn(msg string, args ...any) {
	l.logger.Warn().Fields(args).Msg(msg)
}

func (l *gocronLogger) Error(msg string, args ...any) {
	l.logger.Error().Fields(args).Msg(msg)
}
