// Package activity records finished lessons and quizzes and pays out what
// they earn: points, the daily streak bonus, achievements and level badges.
package activity

import (
	"context"
	"math"
	"strings"

	"github.com/smith3v/ai-tutor/pkg/achievements"
	"github.com/smith3v/ai-tutor/pkg/db"
	"github.com/smith3v/ai-tutor/pkg/logger"
	"github.com/smith3v/ai-tutor/pkg/progress"
	"github.com/smith3v/ai-tutor/pkg/sessions"
	"github.com/smith3v/ai-tutor/pkg/streak"
)

const (
	LessonScore   = 100
	LessonMinutes = 15
	QuizMinutes   = 10

	WeekStreakDays    = 7
	MultiSubjectCount = 3
	QuizMasterPerfect = 5

	perfectScore = 100
)

// Outcome describes everything one completion changed.
type Outcome struct {
	Session     *db.LearningSession
	Progress    *db.Progress
	Points      int // awarded in total, bonuses included
	StreakDays  int
	StreakBonus bool
	LeveledUp   bool
	Reward      string // badge for the level just reached, if any
	Unlocked    []achievements.Definition
}

type Tracker struct {
	sessions     *sessions.Recorder
	progress     *progress.Ledger
	achievements *achievements.Ledger
	streak       *streak.Calculator
}

func New(rec *sessions.Recorder, prog *progress.Ledger, ach *achievements.Ledger) *Tracker {
	return &Tracker{
		sessions:     rec,
		progress:     prog,
		achievements: ach,
		streak:       streak.New(rec),
	}
}

type completion struct {
	userID   uint
	subject  string
	skill    string
	activity string
	score    int
	minutes  int
	points   int
}

// rule names the achievements a completion qualifies for, given the streak
// that includes it.
type rule func(ctx context.Context, userID uint, streakDays int) ([]string, error)

// CompleteLesson records a finished lesson in subject and awards the lesson
// points to the subject's general skill.
func (t *Tracker) CompleteLesson(ctx context.Context, userID uint, subject string) (*Outcome, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, db.InvalidInput("complete lesson", "subject is required")
	}
	return t.complete(ctx, completion{
		userID:   userID,
		subject:  subject,
		skill:    progress.DefaultSkill,
		activity: sessions.ActivityLesson,
		score:    LessonScore,
		minutes:  LessonMinutes,
		points:   progress.PointsLessonCompletion,
	}, t.lessonAchievements)
}

// CompleteQuiz records a finished quiz with correct answers out of total. The
// session score is the percentage, rounded.
func (t *Tracker) CompleteQuiz(ctx context.Context, userID uint, correct, total int) (*Outcome, error) {
	if total <= 0 || correct < 0 || correct > total {
		return nil, db.InvalidInput("complete quiz", "correct answers must be within 0..total and total positive")
	}
	percentage := float64(correct) * 100 / float64(total)
	return t.complete(ctx, completion{
		userID:   userID,
		subject:  progress.QuizSubject,
		skill:    progress.QuizSkill,
		activity: sessions.ActivityAssessment,
		score:    int(math.Round(percentage)),
		minutes:  QuizMinutes,
		points:   progress.QuizPoints(percentage),
	}, t.quizAchievements)
}

// complete runs the steps in order. Each step is atomic on its own; a failure
// part way keeps what the earlier steps wrote.
func (t *Tracker) complete(ctx context.Context, c completion, qualifies rule) (*Outcome, error) {
	before, err := t.streak.Current(ctx, c.userID)
	if err != nil {
		return nil, err
	}
	session, err := t.sessions.Record(ctx, c.userID, c.subject, c.activity, c.score, c.minutes)
	if err != nil {
		return nil, err
	}
	after, err := t.streak.Current(ctx, c.userID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Session: session, StreakDays: after}
	points := c.points
	// first activity of a day that extends a run
	if after > before && after > 1 {
		out.StreakBonus = true
		points += progress.PointsDailyStreak
	}

	ids, err := qualifies(ctx, c.userID, after)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		res, err := t.achievements.Unlock(ctx, c.userID, id)
		if err != nil {
			return nil, err
		}
		if res != achievements.Unlocked {
			continue
		}
		def, ok := achievements.Lookup(id)
		if !ok {
			def = achievements.Definition{ID: id}
		}
		out.Unlocked = append(out.Unlocked, def)
		points += progress.PointsAchievementUnlock
	}

	change, err := t.progress.Apply(ctx, c.userID, c.subject, c.skill, points)
	if err != nil {
		return nil, err
	}
	out.Progress = change.Record
	out.Points = points
	out.LeveledUp = change.LeveledUp()
	if out.LeveledUp {
		out.Reward, _ = progress.LevelReward(change.Record.Level)
	}

	logger.Info("activity completed", "user_id", c.userID, "activity", c.activity, "subject", c.subject,
		"points", points, "level", change.Record.Level, "streak", after, "unlocked", len(out.Unlocked))
	return out, nil
}

func (t *Tracker) lessonAchievements(ctx context.Context, userID uint, streakDays int) ([]string, error) {
	ids := []string{achievements.FirstLesson}
	subjects, err := t.sessions.DistinctSubjects(ctx, userID, sessions.ActivityLesson)
	if err != nil {
		return nil, err
	}
	if subjects >= MultiSubjectCount {
		ids = append(ids, achievements.MultiSubject)
	}
	if streakDays >= WeekStreakDays {
		ids = append(ids, achievements.WeekStreak)
	}
	return ids, nil
}

func (t *Tracker) quizAchievements(ctx context.Context, userID uint, streakDays int) ([]string, error) {
	var ids []string
	perfect, err := t.sessions.CountScored(ctx, userID, sessions.ActivityAssessment, perfectScore)
	if err != nil {
		return nil, err
	}
	if perfect >= QuizMasterPerfect {
		ids = append(ids, achievements.QuizMaster)
	}
	if streakDays >= WeekStreakDays {
		ids = append(ids, achievements.WeekStreak)
	}
	return ids, nil
}
