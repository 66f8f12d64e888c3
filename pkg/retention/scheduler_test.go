package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smith3v/ai-tutor/pkg/config"
	"github.com/smith3v/ai-tutor/pkg/internal/testutil"
	"github.com/smith3v/ai-tutor/pkg/sessions"
)

type stubPurger struct {
	days int
	n    int64
	err  error
}

func (p *stubPurger) Purge(_ context.Context, olderThanDays int) (int64, error) {
	p.days = olderThanDays
	return p.n, p.err
}

func TestRunOnceUsesConfiguredWindow(t *testing.T) {
	purger := &stubPurger{n: 4}
	s := NewScheduler(purger, config.RetentionConfig{Days: 90})

	deleted, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if deleted != 4 || purger.days != 90 {
		t.Fatalf("expected 4 deletions over 90 days, got %d over %d", deleted, purger.days)
	}
}

func TestRunOnceDefaultsWindow(t *testing.T) {
	purger := &stubPurger{}
	s := NewScheduler(purger, config.RetentionConfig{})
	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if purger.days != config.DefaultRetentionDays {
		t.Fatalf("expected default window %d, got %d", config.DefaultRetentionDays, purger.days)
	}
}

func TestRunOnceReportsFailure(t *testing.T) {
	boom := errors.New("store down")
	s := NewScheduler(&stubPurger{err: boom}, config.RetentionConfig{Days: 1})
	if _, err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected purge error, got %v", err)
	}
}

func TestRunOnceAgainstStore(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{now.AddDate(-2, 0, 0), now.AddDate(0, 0, -30)} {
		r := sessions.New(gdb, sessions.WithClock(testutil.FixedClock(at)))
		if _, err := r.Record(ctx, 1, "Mathematics", "lesson", 100, 15); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	rec := sessions.New(gdb, sessions.WithClock(testutil.FixedClock(now)))
	deleted, err := NewScheduler(rec, config.RetentionConfig{Days: 365}).RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 expired session deleted, got %d", deleted)
	}
	left, err := rec.Recent(ctx, 1, 3650)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(left) != 1 {
		t.Fatalf("expected 1 session left, got %d", len(left))
	}
}

func TestStartSchedulesDailyJob(t *testing.T) {
	s := NewScheduler(&stubPurger{}, config.RetentionConfig{Days: 30, RunAt: "04:30"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer s.Stop()

	if err := s.Start(ctx); err == nil {
		t.Fatal("expected error when starting twice")
	}
	next := s.NextRun().UTC()
	if next.IsZero() {
		t.Fatal("expected next run to be scheduled")
	}
	if next.Hour() != 4 || next.Minute() != 30 {
		t.Fatalf("expected next run at 04:30 UTC, got %v", next)
	}
}

func TestStartRejectsBadTime(t *testing.T) {
	s := NewScheduler(&stubPurger{}, config.RetentionConfig{RunAt: "25:99"})
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid run time")
	}
}
