// Package streak counts consecutive days of learning activity.
package streak

import (
	"context"
	"time"
)

// DateSource yields the distinct calendar dates with activity, newest first,
// and the clock those dates are expressed in.
type DateSource interface {
	ActiveDates(ctx context.Context, userID uint) ([]time.Time, error)
	Now() time.Time
}

type Calculator struct {
	source DateSource
}

func New(source DateSource) *Calculator {
	return &Calculator{source: source}
}

func (c *Calculator) Current(ctx context.Context, userID uint) (int, error) {
	dates, err := c.source.ActiveDates(ctx, userID)
	if err != nil {
		return 0, err
	}
	return Count(dates, c.source.Now()), nil
}

// Count walks dates (distinct, newest first) and returns the length of the
// run of consecutive days that starts today or yesterday. A run whose newest
// day is older than yesterday counts as zero.
func Count(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	expected := civilDay(today)
	streak := 0
	for i, d := range dates {
		day := civilDay(d)
		if i == 0 && day.Equal(expected.AddDate(0, 0, -1)) {
			expected = day
		}
		if !day.Equal(expected) {
			break
		}
		streak++
		expected = day.AddDate(0, 0, -1)
	}
	return streak
}

// civilDay drops the clock and zone so days compare by calendar date only.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
