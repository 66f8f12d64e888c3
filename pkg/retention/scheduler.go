package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/smith3v/ai-tutor/pkg/config"
	"github.com/smith3v/ai-tutor/pkg/logger"
)

const defaultRunAt = "03:00"

// Purger deletes learning sessions older than the given number of days.
type Purger interface {
	Purge(ctx context.Context, olderThanDays int) (int64, error)
}

type Scheduler struct {
	purger    Purger
	days      int
	runAt     string
	scheduler *gocron.Scheduler
	cancel    context.CancelFunc
}

func NewScheduler(purger Purger, cfg config.RetentionConfig) *Scheduler {
	days := cfg.Days
	if days <= 0 {
		days = config.DefaultRetentionDays
	}
	runAt := cfg.RunAt
	if runAt == "" {
		runAt = defaultRunAt
	}
	return &Scheduler{
		purger:    purger,
		days:      days,
		runAt:     runAt,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// RunOnce purges immediately with the configured window.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := s.purger.Purge(ctx, s.days)
	if err != nil {
		logger.Error("retention purge failed", "days", s.days, "error", err)
		return 0, err
	}
	logger.Info("retention purge finished", "days", s.days, "deleted", deleted)
	return deleted, nil
}

// Start schedules the daily purge and returns without blocking. The job stops
// when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cancel != nil {
		return errors.New("retention scheduler already started")
	}
	jobCtx, cancel := context.WithCancel(ctx)
	s.scheduler.SingletonModeAll()
	_, err := s.scheduler.Every(1).Day().At(s.runAt).Do(func() {
		if _, err := s.RunOnce(jobCtx); err != nil {
			logger.Error("scheduled retention purge failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule retention purge at %q: %w", s.runAt, err)
	}
	s.cancel = cancel
	s.scheduler.StartAsync()
	logger.Info("retention scheduler started", "days", s.days, "run_at", s.runAt)

	go func() {
		<-jobCtx.Done()
		s.scheduler.Stop()
	}()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.scheduler.Stop()
}

// NextRun reports when the purge runs next; zero before Start.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}
