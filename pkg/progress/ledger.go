package progress

import (
	"context"
	"time"

	"github.com/smith3v/ai-tutor/pkg/db"
	"github.com/smith3v/ai-tutor/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PointsPerLevel scales the level-up threshold: a record at level L levels
// up once its cumulative points reach L*PointsPerLevel.
const PointsPerLevel = 100

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

// NextLevel applies the level-up rule to a record that just reached points.
// The threshold grows with the current level and at most one level is gained
// per award.
func NextLevel(level, points int) int {
	if points >= level*PointsPerLevel {
		return level + 1
	}
	return level
}

// Change is the outcome of an award: the saved record and the level it had
// before the points were added.
type Change struct {
	Record        *db.Progress
	PreviousLevel int
}

func (c Change) LeveledUp() bool {
	return c.Record.Level > c.PreviousLevel
}

// Award adds points to the (user, subject, skill) record, creating it at
// level 1 when missing.
func (l *Ledger) Award(ctx context.Context, userID uint, subject, skill string, points int) (*db.Progress, error) {
	change, err := l.Apply(ctx, userID, subject, skill, points)
	if err != nil {
		return nil, err
	}
	return change.Record, nil
}

// Apply is Award reporting the previous level as well. The read-modify-write
// runs as one upsert statement so concurrent awards on the same key cannot
// lose an update; the existing row is locked first where the driver supports
// row locks.
func (l *Ledger) Apply(ctx context.Context, userID uint, subject, skill string, points int) (*Change, error) {
	const op = "award progress"
	if points < 0 {
		return nil, db.InvalidInput(op, "points must not be negative")
	}

	row := db.Progress{
		UserID:      userID,
		Subject:     subject,
		Skill:       skill,
		Level:       db.FirstLevel,
		Points:      points,
		LastUpdated: l.now().UTC(),
	}
	change := Change{PreviousLevel: db.FirstLevel}
	var saved db.Progress
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before []db.Progress
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND subject = ? AND skill = ?", userID, subject, skill).
			Limit(1).
			Find(&before).Error
		if err != nil {
			return err
		}
		if len(before) == 1 {
			change.PreviousLevel = before[0].Level
		}

		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "subject"}, {Name: "skill"}},
			DoUpdates: clause.Assignments(map[string]any{
				// every right-hand side sees the pre-update row
				"level": gorm.Expr(
					"CASE WHEN progress.points + excluded.points >= progress.level * ? THEN progress.level + 1 ELSE progress.level END",
					PointsPerLevel,
				),
				"points":       gorm.Expr("progress.points + excluded.points"),
				"last_updated": gorm.Expr("excluded.last_updated"),
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ? AND subject = ? AND skill = ?", userID, subject, skill).
			First(&saved).Error
	})
	if err != nil {
		logger.Error("failed to award progress", "user_id", userID, "subject", subject, "skill", skill, "error", err)
		return nil, db.StorageError(op, err)
	}
	change.Record = &saved
	logger.Debug("progress awarded", "user_id", userID, "subject", subject, "skill", skill,
		"points", saved.Points, "level", saved.Level)
	return &change, nil
}

// ForUser returns every progress record of the user, most recently updated first.
func (l *Ledger) ForUser(ctx context.Context, userID uint) ([]db.Progress, error) {
	var records []db.Progress
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		logger.Error("failed to load progress", "user_id", userID, "error", err)
		return nil, db.StorageError("progress for user", err)
	}
	return records, nil
}
