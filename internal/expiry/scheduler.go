package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 10 * time.Minute

// Scheduler runs reconciliation sweeps on a fixed interval. Overlapping runs
// are skipped rather than queued, so a slow sweep never stacks up behind
// itself.
type Scheduler struct {
	reconciler *Reconciler
	interval   time.Duration
	cron       *cron.Cron
	logger     *slog.Logger
}

// NewScheduler creates a sweep scheduler. The interval must be positive.
func NewScheduler(log *slog.Logger, reconciler *Reconciler, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("expiry scheduler: interval must be positive, got %s", interval)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		reconciler: reconciler,
		interval:   interval,
		cron:       cron.New(),
		logger:     log.With(slog.String("service", "expiry")),
	}, nil
}

// Start registers the sweep job and begins ticking. The first sweep runs
// immediately so a restart never extends an already-lapsed grant.
func (s *Scheduler) Start() error {
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.logger})).Then(cron.FuncJob(s.runSweep))
	if _, err := s.cron.AddJob(fmt.Sprintf("@every %s", s.interval), job); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}
	s.cron.Start()
	go job.Run()
	s.logger.Info("expiry sweeps scheduled", slog.Duration("interval", s.interval))
	return nil
}

// Stop halts the ticker and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.reconciler.Sweep(ctx); err != nil {
		s.logger.Error("expiry sweep failed", slog.Any("error", err))
	}
}

// cronLogger adapts slog to the cron logging interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.Any("error", err))...)
}
