// Package scheduler runs the periodic maintenance jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/jaskrrish/Go-QChat/internal/logging"
)

// Job is a named periodic task
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler wraps a gocron scheduler
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a scheduler. Jobs receive a context cancelled on Shutdown.
func New(logger zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logging.NewGocronLogger(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Add registers a job. Overlapping runs of the same job are skipped.
func (s *Scheduler) Add(job Job) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(job.Interval),
		gocron.NewTask(func() {
			if err := job.Run(s.ctx); err != nil {
				s.logger.Error().Err(err).Str("job", job.Name).Msg("Scheduled job failed")
			}
		}),
		gocron.WithName(job.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", job.Name, err)
	}

	s.logger.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("Job scheduled")
	return nil
}

// Start begins running jobs
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Jobs returns the names of the registered jobs
func (s *Scheduler) Jobs() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// Shutdown stops the scheduler and waits for running jobs
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}
