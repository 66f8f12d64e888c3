package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smith3v/ai-tutor/pkg/config"
	"github.com/smith3v/ai-tutor/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqliteBusyTimeoutMillis = 5000

// Open connects to the configured store and brings the schema up to date. The
// returned handle is the process-wide pool; callers pass it to each component.
func Open(cfg config.DatabaseConfig, gormLevel string) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		logger.Error("invalid database configuration", "error", err)
		return nil, err
	}
	gormLogger, gormErr := newGormLogger(gormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", gormLevel, "error", gormErr)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		logger.Error("failed to connect to database", "driver", dialector.Name(), "error", err)
		return nil, StorageError("open", err)
	}
	if dialector.Name() == config.DriverSQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, StorageError("open", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(gdb); err != nil {
		logger.Error("failed to migrate database", "error", err)
		_ = Close(gdb)
		return nil, err
	}
	return gdb, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.DriverPostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	case config.DriverSQLite, "":
		return sqlite.Open(sqliteDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func postgresDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port) +
		" sslmode=" + sslMode
}

func sqliteDSN(cfg config.DatabaseConfig) string {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Path
	}
	if dsn == "" {
		dsn = config.DefaultSQLitePath
	}
	if strings.Contains(dsn, "_busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_busy_timeout=" + strconv.Itoa(sqliteBusyTimeoutMillis)
}

// Migrate creates or updates every table. It is safe to run on each start.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return errors.New("migrate: nil database handle")
	}
	if err := migrateLegacyPasswordColumn(gdb); err != nil {
		return StorageError("migrate legacy password column", err)
	}
	if err := migrateLegacyProgressDuplicates(gdb); err != nil {
		return StorageError("migrate legacy progress", err)
	}
	if err := migrateLegacyAchievementDuplicates(gdb); err != nil {
		return StorageError("migrate legacy achievements", err)
	}
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return StorageError("auto-migrate", err)
	}
	return nil
}

// Databases created by the first release stored the digest in password_hash.
func migrateLegacyPasswordColumn(gdb *gorm.DB) error {
	migrator := gdb.Migrator()
	if !migrator.HasTable(&User{}) {
		return nil
	}
	if !migrator.HasColumn(&User{}, "password_hash") || migrator.HasColumn(&User{}, "password_digest") {
		return nil
	}
	return migrator.RenameColumn(&User{}, "password_hash", "password_digest")
}

// The first release had no unique key on progress, so a lost-update race could
// leave duplicate rows. Fold them into the oldest row before the unique index
// is created.
func migrateLegacyProgressDuplicates(gdb *gorm.DB) error {
	migrator := gdb.Migrator()
	if !migrator.HasTable(&Progress{}) || migrator.HasIndex(&Progress{}, "idx_progress_key") {
		return nil
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
UPDATE progress
SET points = (
  SELECT SUM(p2.points) FROM progress p2
  WHERE p2.user_id = progress.user_id AND p2.subject = progress.subject AND p2.skill = progress.skill
),
level = (
  SELECT MAX(p2.level) FROM progress p2
  WHERE p2.user_id = progress.user_id AND p2.subject = progress.subject AND p2.skill = progress.skill
)
WHERE id IN (
  SELECT MIN(id) FROM progress GROUP BY user_id, subject, skill HAVING COUNT(*) > 1
)
`).Error; err != nil {
			return err
		}
		return tx.Exec(`
DELETE FROM progress
WHERE id NOT IN (
  SELECT MIN(id) FROM progress GROUP BY user_id, subject, skill
)
`).Error
	})
}

// Achievements were also check-then-insert in the first release. Keep the
// first row of each (user, achievement) pair.
func migrateLegacyAchievementDuplicates(gdb *gorm.DB) error {
	migrator := gdb.Migrator()
	if !migrator.HasTable(&Achievement{}) || migrator.HasIndex(&Achievement{}, "idx_user_achievement") {
		return nil
	}
	return gdb.Exec(`
DELETE FROM achievements
WHERE id NOT IN (
  SELECT MIN(id) FROM achievements GROUP BY user_id, achievement_id
)
`).Error
}

func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
