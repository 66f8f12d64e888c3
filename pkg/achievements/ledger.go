package achievements

import (
	"context"
	"strings"
	"time"

	"github.com/smith3v/ai-tutor/pkg/db"
	"github.com/smith3v/ai-tutor/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Result int

const (
	Unlocked Result = iota + 1
	AlreadyUnlocked
)

func (r Result) String() string {
	switch r {
	case Unlocked:
		return "unlocked"
	case AlreadyUnlocked:
		return "already_unlocked"
	default:
		return "unknown"
	}
}

type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(gdb *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{db: gdb, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Unlock records the achievement once per user. Repeating the call reports
// AlreadyUnlocked and writes nothing.
func (l *Ledger) Unlock(ctx context.Context, userID uint, achievementID string) (Result, error) {
	const op = "unlock achievement"
	achievementID = strings.TrimSpace(achievementID)
	if achievementID == "" {
		return 0, db.InvalidInput(op, "achievement id is required")
	}

	row := db.Achievement{
		UserID:        userID,
		AchievementID: achievementID,
		EarnedAt:      l.now().UTC(),
	}
	res := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		logger.Error("failed to unlock achievement", "user_id", userID, "achievement", achievementID, "error", res.Error)
		return 0, db.StorageError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return AlreadyUnlocked, nil
	}
	logger.Info("achievement unlocked", "user_id", userID, "achievement", achievementID)
	return Unlocked, nil
}

// ForUser lists the user's achievement ids in the order they were earned.
func (l *Ledger) ForUser(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	err := l.db.WithContext(ctx).
		Model(&db.Achievement{}).
		Where("user_id = ?", userID).
		Order("earned_at ASC").
		Order("id ASC").
		Pluck("achievement_id", &ids).Error
	if err != nil {
		logger.Error("failed to load achievements", "user_id", userID, "error", err)
		return nil, db.StorageError("achievements for user", err)
	}
	return ids, nil
}

func (l *Ledger) Count(ctx context.Context, userID uint) (int, error) {
	var n int64
	err := l.db.WithContext(ctx).
		Model(&db.Achievement{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	if err != nil {
		logger.Error("failed to count achievements", "user_id", userID, "error", err)
		return 0, db.StorageError("count achievements", err)
	}
	return int(n), nil
}
