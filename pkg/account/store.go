// Package account owns learner identities: registration, password
// verification and the learner's preference tags.
package account

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/smith3v/ai-tutor/pkg/db"
	"github.com/smith3v/ai-tutor/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const legacyDigestLength = sha256.Size * 2

type Registration struct {
	Username      string
	Password      string
	Name          string
	Age           int
	LearningNeeds string
	Preferences   []string
}

type Store struct {
	db   *gorm.DB
	cost int
	now  func() time.Time

	// compared against when the username is unknown, so both failure paths
	// spend the same bcrypt work
	dummyDigest []byte
}

type Option func(*Store)

// WithCost sets the bcrypt cost for new digests.
func WithCost(cost int) Option {
	return func(s *Store) {
		s.cost = cost
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(gdb *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:   gdb,
		cost: bcrypt.DefaultCost,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cost < bcrypt.MinCost || s.cost > bcrypt.MaxCost {
		s.cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), s.cost)
	if err != nil {
		logger.Error("failed to prepare placeholder digest", "error", err)
	}
	s.dummyDigest = digest
	return s
}

func (s *Store) Register(ctx context.Context, reg Registration) (*db.User, error) {
	const op = "register"
	username := strings.TrimSpace(reg.Username)
	if username == "" {
		return nil, db.InvalidInput(op, "username is required")
	}
	if reg.Password == "" {
		return nil, db.InvalidInput(op, "password is required")
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		// only fails for passwords longer than bcrypt accepts
		return nil, db.InvalidInput(op, err.Error())
	}
	prefs, err := db.EncodePreferences(reg.Preferences)
	if err != nil {
		return nil, db.InvalidInput(op, err.Error())
	}

	user := db.User{
		Username:       username,
		PasswordDigest: string(digest),
		Name:           reg.Name,
		Age:            reg.Age,
		LearningNeeds:  reg.LearningNeeds,
		Preferences:    prefs,
		CreatedAt:      s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Info("registration rejected, username taken", "username", username)
			return nil, &db.OpError{Op: op, Kind: db.ErrAlreadyExists}
		}
		logger.Error("failed to create user", "username", username, "error", err)
		return nil, db.StorageError(op, err)
	}
	logger.Info("user registered", "user_id", user.ID)
	return &user, nil
}

// Authenticate returns the profile for matching credentials. An unknown
// username and a wrong password both yield db.ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*db.User, error) {
	const op = "authenticate"
	var user db.User
	err := s.db.WithContext(ctx).
		Where("username = ?", strings.TrimSpace(username)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyDigest, []byte(password))
		return nil, &db.OpError{Op: op, Kind: db.ErrInvalidCredentials}
	}
	if err != nil {
		logger.Error("failed to load user for authentication", "error", err)
		return nil, db.StorageError(op, err)
	}
	if !verifyDigest(user.PasswordDigest, password) {
		return nil, &db.OpError{Op: op, Kind: db.ErrInvalidCredentials}
	}
	return &user, nil
}

func (s *Store) UpdatePreferences(ctx context.Context, userID uint, prefs []string) error {
	const op = "update preferences"
	raw, err := db.EncodePreferences(prefs)
	if err != nil {
		return db.InvalidInput(op, err.Error())
	}
	res := s.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("preferences", raw)
	if res.Error != nil {
		logger.Error("failed to update preferences", "user_id", userID, "error", res.Error)
		return db.StorageError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return db.InvalidInput(op, "unknown user")
	}
	return nil
}

// verifyDigest accepts bcrypt digests and the unsalted hex SHA-256 digests
// written by the first release.
func verifyDigest(stored, password string) bool {
	if isLegacyDigest(stored) {
		sum := sha256.Sum256([]byte(password))
		candidate := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(candidate)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

func isLegacyDigest(stored string) bool {
	if len(stored) != legacyDigestLength {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}
