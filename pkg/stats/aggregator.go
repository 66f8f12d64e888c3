// Package stats composes the ledgers into read-only views: a learner's
// summary, the cross-learner leaderboard and a full data export.
package stats

import (
	"context"
	"math"
	"time"

	"github.com/smith3v/ai-tutor/pkg/achievements"
	"github.com/smith3v/ai-tutor/pkg/db"
	"github.com/smith3v/ai-tutor/pkg/logger"
	"github.com/smith3v/ai-tutor/pkg/progress"
	"github.com/smith3v/ai-tutor/pkg/sessions"
	"github.com/smith3v/ai-tutor/pkg/streak"
	"gorm.io/gorm"
)

const (
	DefaultLeaderboardLimit = 10
	ExportWindowDays        = 365
)

type Summary struct {
	TotalPoints       int     `json:"total_points"`
	AverageLevel      float64 `json:"average_level"`
	SubjectsCount     int     `json:"subjects_learning"`
	TotalSessions     int     `json:"total_sessions"`
	AverageScore      float64 `json:"average_score"`
	TotalMinutes      int     `json:"total_time_minutes"`
	Streak            int     `json:"learning_streak"`
	AchievementsCount int     `json:"achievements_count"`
}

type LeaderboardEntry struct {
	UserID        uint   `json:"-"`
	Name          string `json:"name"`
	TotalPoints   int    `json:"total_points"`
	SubjectsCount int    `json:"subjects"`
	Rank          int    `json:"rank"`
}

type Export struct {
	Progress     []db.Progress         `json:"progress"`
	Sessions     []db.LearningSession  `json:"sessions"`
	Achievements []string              `json:"achievements"`
	Badges       []achievements.Status `json:"badges"`
	Stats        Summary               `json:"stats"`
	ExportDate   time.Time             `json:"export_date"`
}

type Aggregator struct {
	db           *gorm.DB
	sessions     *sessions.Recorder
	progress     *progress.Ledger
	achievements *achievements.Ledger
	streak       *streak.Calculator
}

func New(gdb *gorm.DB, rec *sessions.Recorder, prog *progress.Ledger, ach *achievements.Ledger) *Aggregator {
	return &Aggregator{
		db:           gdb,
		sessions:     rec,
		progress:     prog,
		achievements: ach,
		streak:       streak.New(rec),
	}
}

// Summary reports the learner's totals. Session figures cover the default
// window; averages over empty data are zero.
func (a *Aggregator) Summary(ctx context.Context, userID uint) (Summary, error) {
	records, err := a.progress.ForUser(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	recent, err := a.sessions.Recent(ctx, userID, sessions.DefaultWindowDays)
	if err != nil {
		return Summary{}, err
	}
	earned, err := a.achievements.Count(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	days, err := a.streak.Current(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	summary := summarize(records, recent)
	summary.Streak = days
	summary.AchievementsCount = earned
	return summary, nil
}

func summarize(records []db.Progress, recent []db.LearningSession) Summary {
	var s Summary
	levels := 0
	subjects := make(map[string]struct{}, len(records))
	for _, r := range records {
		s.TotalPoints += r.Points
		levels += r.Level
		subjects[r.Subject] = struct{}{}
	}
	s.SubjectsCount = len(subjects)
	s.AverageLevel = mean(levels, len(records))

	scores := 0
	for _, sess := range recent {
		scores += sess.Score
		s.TotalMinutes += sess.Duration
	}
	s.TotalSessions = len(recent)
	s.AverageScore = mean(scores, len(recent))
	return s
}

// mean rounds to one decimal and defines the mean of nothing as zero.
func mean(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10
}

// Leaderboard ranks learners by total points across all their progress
// records. Equal totals keep registration order.
func (a *Aggregator) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	var entries []LeaderboardEntry
	err := a.db.WithContext(ctx).
		Table("users AS u").
		Select("u.id AS user_id, u.name AS name, SUM(p.points) AS total_points, COUNT(DISTINCT p.subject) AS subjects_count").
		Joins("JOIN progress AS p ON p.user_id = u.id").
		Group("u.id, u.name").
		Order("total_points DESC").
		Order("u.id ASC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		logger.Error("failed to build leaderboard", "limit", limit, "error", err)
		return nil, db.StorageError("leaderboard", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Export gathers everything stored about the learner.
func (a *Aggregator) Export(ctx context.Context, userID uint) (*Export, error) {
	records, err := a.progress.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := a.sessions.Recent(ctx, userID, ExportWindowDays)
	if err != nil {
		return nil, err
	}
	earned, err := a.achievements.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := a.achievements.Statuses(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := a.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if earned == nil {
		earned = []string{}
	}
	return &Export{
		Progress:     records,
		Sessions:     history,
		Achievements: earned,
		Badges:       badges,
		Stats:        summary,
		ExportDate:   a.sessions.Now(),
	}, nil
}
