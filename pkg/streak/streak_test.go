package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smith3v/ai-tutor/pkg/internal/testutil"
	"github.com/smith3v/ai-tutor/pkg/sessions"
)

func days(today time.Time, offsets ...int) []time.Time {
	out := make([]time.Time, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, today.AddDate(0, 0, -off))
	}
	return out
}

func TestCount(t *testing.T) {
	today := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		name    string
		offsets []int
		want    int
	}{
		{name: "no sessions", offsets: nil, want: 0},
		{name: "today only", offsets: []int{0}, want: 1},
		{name: "yesterday only", offsets: []int{1}, want: 1},
		{name: "today and yesterday", offsets: []int{0, 1}, want: 2},
		{name: "three days ago only", offsets: []int{3}, want: 0},
		{name: "anchored yesterday run", offsets: []int{1, 2, 3}, want: 3},
		{name: "gap stops the walk", offsets: []int{0, 1, 3, 4}, want: 2},
		{name: "two days ago breaks anchor", offsets: []int{2, 3}, want: 0},
		{name: "week", offsets: []int{0, 1, 2, 3, 4, 5, 6}, want: 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Count(days(today, tc.offsets...), today); got != tc.want {
				t.Fatalf("Count = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCountAcrossMonthBoundary(t *testing.T) {
	today := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	dates := []time.Time{
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC),
	}
	if got := Count(dates, today); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
}

func TestCurrentFromRecordedSessions(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{now.Add(-2 * time.Hour), now.AddDate(0, 0, -1), now.AddDate(0, 0, -1).Add(-time.Hour)} {
		r := sessions.New(gdb, sessions.WithClock(testutil.FixedClock(at)))
		if _, err := r.Record(ctx, 4, "Mathematics", "lesson", 100, 15); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	calc := New(sessions.New(gdb, sessions.WithClock(testutil.FixedClock(now))))
	got, err := calc.Current(ctx, 4)
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected streak of 2, got %d", got)
	}

	none, err := calc.Current(ctx, 99)
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if none != 0 {
		t.Fatalf("expected zero streak without sessions, got %d", none)
	}
}

type failingSource struct{}

func (failingSource) ActiveDates(context.Context, uint) ([]time.Time, error) {
	return nil, errors.New("store down")
}

func (failingSource) Now() time.Time { return time.Now() }

func TestCurrentPropagatesErrors(t *testing.T) {
	if _, err := New(failingSource{}).Current(context.Background(), 1); err == nil {
		t.Fatal("expected error from failing source")
	}
}
