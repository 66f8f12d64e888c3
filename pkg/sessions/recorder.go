package sessions

import (
	"context"
	"time"

	"github.com/smith3v/ai-tutor/pkg/db"
	"github.com/smith3v/ai-tutor/pkg/logger"
	"gorm.io/gorm"
)

// DefaultWindowDays is the look-back used for dashboards and summaries.
const DefaultWindowDays = 30

// Activity types written by the completion flows.
const (
	ActivityLesson     = "lesson"
	ActivityAssessment = "assessment"
)

type Recorder struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*Recorder)

// WithClock replaces the wall clock. Timestamps are stored in UTC; calendar
// dates are derived in the clock's location.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

func New(gdb *gorm.DB, opts ...Option) *Recorder {
	r := &Recorder{db: gdb, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Now() time.Time {
	return r.now()
}

func (r *Recorder) Record(ctx context.Context, userID uint, subject, activityType string, score, duration int) (*db.LearningSession, error) {
	session := db.LearningSession{
		UserID:       userID,
		Subject:      subject,
		ActivityType: activityType,
		Score:        score,
		Duration:     duration,
		CompletedAt:  r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		logger.Error("failed to record learning session", "user_id", userID, "subject", subject, "error", err)
		return nil, db.StorageError("record session", err)
	}
	logger.Debug("learning session recorded", "user_id", userID, "subject", subject, "activity", activityType)
	return &session, nil
}

// Recent lists the sessions completed within the last windowDays, newest first.
func (r *Recorder) Recent(ctx context.Context, userID uint, windowDays int) ([]db.LearningSession, error) {
	cutoff := r.now().AddDate(0, 0, -windowDays).UTC()
	var sessions []db.LearningSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed_at >= ?", userID, cutoff).
		Order("completed_at DESC").
		Order("id DESC").
		Find(&sessions).Error
	if err != nil {
		logger.Error("failed to load recent sessions", "user_id", userID, "error", err)
		return nil, db.StorageError("recent sessions", err)
	}
	return sessions, nil
}

// Purge deletes every session completed at or before now - olderThanDays and
// returns how many rows went. It cannot be undone.
func (r *Recorder) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := r.now().AddDate(0, 0, -olderThanDays).UTC()
	res := r.db.WithContext(ctx).
		Where("completed_at <= ?", cutoff).
		Delete(&db.LearningSession{})
	if res.Error != nil {
		logger.Error("failed to purge learning sessions", "older_than_days", olderThanDays, "error", res.Error)
		return 0, db.StorageError("purge sessions", res.Error)
	}
	logger.Info("purged learning sessions", "older_than_days", olderThanDays, "deleted", res.RowsAffected)
	return res.RowsAffected, nil
}

// DistinctSubjects counts the subjects the user has at least one session of
// the given activity type in.
func (r *Recorder) DistinctSubjects(ctx context.Context, userID uint, activityType string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.LearningSession{}).
		Where("user_id = ? AND activity_type = ?", userID, activityType).
		Distinct("subject").
		Count(&n).Error
	if err != nil {
		logger.Error("failed to count session subjects", "user_id", userID, "activity", activityType, "error", err)
		return 0, db.StorageError("count session subjects", err)
	}
	return int(n), nil
}

// CountScored counts the user's sessions of activityType scoring at least minScore.
func (r *Recorder) CountScored(ctx context.Context, userID uint, activityType string, minScore int) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.LearningSession{}).
		Where("user_id = ? AND activity_type = ? AND score >= ?", userID, activityType, minScore).
		Count(&n).Error
	if err != nil {
		logger.Error("failed to count scored sessions", "user_id", userID, "activity", activityType, "error", err)
		return 0, db.StorageError("count scored sessions", err)
	}
	return int(n), nil
}

// ActiveDates returns the distinct calendar dates with at least one session,
// newest first, as midnight in the recorder clock's location.
func (r *Recorder) ActiveDates(ctx context.Context, userID uint) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).
		Model(&db.LearningSession{}).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Pluck("completed_at", &stamps).Error
	if err != nil {
		logger.Error("failed to load session dates", "user_id", userID, "error", err)
		return nil, db.StorageError("session dates", err)
	}

	loc := r.now().Location()
	dates := make([]time.Time, 0, len(stamps))
	for _, ts := range stamps {
		day := truncateDay(ts.In(loc))
		if n := len(dates); n > 0 && dates[n-1].Equal(day) {
			continue
		}
		dates = append(dates, day)
	}
	return dates, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
