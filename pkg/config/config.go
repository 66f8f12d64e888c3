package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/smith3v/ai-tutor/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultSQLitePath    = "ai_tutor.db"
	DefaultRetentionDays = 365
)

type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
	Retention RetentionConfig `json:"retention"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Path     string `json:"path"` // sqlite only
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	Format    string `json:"format"`
	GormLevel string `json:"gorm_level"`
}

type RetentionConfig struct {
	Days    int    `json:"days"`
	RunAt   string `json:"run_at"` // HH:MM, UTC
	Enabled *bool  `json:"enabled"`
}

// IsEnabled reports whether the retention job should be scheduled. Unset means on.
func (r RetentionConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

var AppConfig = Default()

func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   DefaultSQLitePath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Retention: RetentionConfig{
			Days:  DefaultRetentionDays,
			RunAt: "03:00",
		},
	}
}

func LoadConfig(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}
	defer file.Close()

	cfg := Default()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}
	if cfg.Retention.Days <= 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}

	AppConfig = cfg
	return nil
}

// ApplyEnv loads the optional env files (".env" when none are given) and lets
// AI_TUTOR_* variables override the loaded configuration. Variables already
// present in the process environment win over the files.
func ApplyEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, name := range files {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Error("failed to load env file", "file", name, "error", err)
			return err
		}
	}

	if v, ok := lookup("AI_TUTOR_DB_DRIVER"); ok {
		AppConfig.Database.Driver = v
	}
	if v, ok := lookup("AI_TUTOR_DB_DSN"); ok {
		AppConfig.Database.DSN = v
	}
	if v, ok := lookup("AI_TUTOR_DB_PATH"); ok {
		AppConfig.Database.Path = v
	}
	if v, ok := lookup("AI_TUTOR_LOG_LEVEL"); ok {
		AppConfig.Logging.Level = v
	}
	if v, ok := lookup("AI_TUTOR_LOG_FILE"); ok {
		AppConfig.Logging.File = v
	}
	if v, ok := lookup("AI_TUTOR_RETENTION_DAYS"); ok {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			logger.Error("invalid retention days override", "value", v)
			return errors.New("AI_TUTOR_RETENTION_DAYS must be a positive integer")
		}
		AppConfig.Retention.Days = days
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
