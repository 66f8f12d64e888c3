package db

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// FirstLevel is the level every progress record starts at.
const FirstLevel = 1

type User struct {
	ID             uint           `gorm:"primaryKey"`
	Username       string         `gorm:"uniqueIndex;not null"`
	PasswordDigest string         `gorm:"column:password_digest;not null" json:"-"`
	Name           string         `gorm:"not null"`
	Age            int
	LearningNeeds  string
	Preferences    datatypes.JSON
	CreatedAt      time.Time
}

// PreferenceList decodes the stored preference tags. A missing or malformed
// value yields an empty list.
func (u User) PreferenceList() []string {
	if len(u.Preferences) == 0 {
		return []string{}
	}
	var prefs []string
	if err := json.Unmarshal(u.Preferences, &prefs); err != nil || prefs == nil {
		return []string{}
	}
	return prefs
}

func EncodePreferences(prefs []string) (datatypes.JSON, error) {
	if prefs == nil {
		prefs = []string{}
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

type LearningSession struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"index:idx_session_user_completed;not null"`
	Subject      string    `gorm:"not null"`
	ActivityType string    `gorm:"not null"`
	Score        int       `gorm:"not null;default:0"`
	Duration     int       `gorm:"not null;default:0"` // minutes
	CompletedAt  time.Time `gorm:"index:idx_session_user_completed;not null"`
}

type Progress struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"uniqueIndex:idx_progress_key;not null"`
	Subject     string    `gorm:"uniqueIndex:idx_progress_key;not null"`
	Skill       string    `gorm:"uniqueIndex:idx_progress_key;not null"`
	Level       int       `gorm:"not null;default:1"`
	Points      int       `gorm:"not null;default:0"`
	LastUpdated time.Time `gorm:"not null"`
}

func (Progress) TableName() string {
	return "progress"
}

type Achievement struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"uniqueIndex:idx_user_achievement;not null"`
	AchievementID string    `gorm:"uniqueIndex:idx_user_achievement;not null"`
	EarnedAt      time.Time `gorm:"not null"`
}

// Models lists every table owned by this module, in creation order.
func Models() []any {
	return []any{&User{}, &LearningSession{}, &Progress{}, &Achievement{}}
}
