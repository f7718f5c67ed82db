package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Settings is everything the binary reads from the environment.
type Settings struct {
	Port       string
	DSN        string
	JWTSecret  string
	AppEnv     string
	UploadDir  string
	UseGCS     bool
	GCSBucket  string
	SessionTTL time.Duration
	LogLevel   string
}

// Development reports whether APP_ENV=development.
func (s Settings) Development() bool { return s.AppEnv == "development" }

// LoadEnv loads .env into the process environment. A missing file is not an
// error; the system environment is used as is.
func LoadEnv() bool {
	return godotenv.Load() == nil
}

// LoadSettings reads Settings from the environment, applying defaults.
func LoadSettings() (Settings, error) {
	s := Settings{
		Port:      getenv("PORT", "8080"),
		DSN:       os.Getenv("DB_DSN"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		AppEnv:    getenv("APP_ENV", "production"),
		UploadDir: getenv("UPLOAD_DIR", "./uploads/documents"),
		GCSBucket: os.Getenv("GCS_BUCKET"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
	}

	// Cloud Run sets K_SERVICE; credentials imply GCS as well.
	s.UseGCS = os.Getenv("USE_GCS") == "true" ||
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" ||
		os.Getenv("K_SERVICE") != ""

	ttl, err := time.ParseDuration(getenv("SESSION_TTL", "2h"))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return Settings{}, errors.New("SESSION_TTL must be positive")
	}
	s.SessionTTL = ttl

	if s.JWTSecret == "" && s.Development() {
		s.JWTSecret = "dev-secret"
	}
	if _, err := strconv.Atoi(s.Port); err != nil {
		return Settings{}, fmt.Errorf("invalid PORT %q: %w", s.Port, err)
	}
	return s, nil
}

// Validate checks what serve needs beyond the defaults.
func (s Settings) Validate() error {
	if s.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if s.UseGCS && s.GCSBucket == "" {
		return errors.New("GCS_BUCKET is required when using Google Cloud Storage")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Connect opens the postgres database named by DB_DSN.
func Connect(s Settings, log *zap.Logger) (*gorm.DB, error) {
	if s.DSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}

	level := gormlogger.Warn
	if s.Development() {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(s.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("connected to database")
	return db, nil
}
