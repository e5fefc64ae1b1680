// Package config loads process configuration from TIERWISE_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/tierwise/internal/llm"
)

// Config is the process configuration.
type Config struct {
	// DB is a SQLite path or a postgres:// DSN. Empty means the default
	// data-dir path.
	DB string

	Thresholds string
	Bank       string
	Addr       string

	NATSURL     string
	NATSSubject string

	LogLevel  string
	LogFormat string

	// SessionLimit is the default time limit for new sessions; 0 disables it.
	SessionLimit    time.Duration
	ShutdownTimeout time.Duration

	AllowedOrigins []string

	LLM                llm.Config
	GradeMinConfidence float64
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Addr:               ":8080",
		NATSSubject:        "tierwise.placement",
		LogLevel:           "info",
		LogFormat:          "text",
		ShutdownTimeout:    15 * time.Second,
		AllowedOrigins:     []string{"*"},
		LLM:                llm.DefaultConfig(),
		GradeMinConfidence: 0.6,
	}
}

// Load reads envFiles (default ".env") when present, then overlays
// TIERWISE_* variables on Default. Variables already set in the process
// environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	setString(&cfg.DB, "TIERWISE_DB")
	setString(&cfg.Thresholds, "TIERWISE_THRESHOLDS")
	setString(&cfg.Bank, "TIERWISE_BANK")
	setString(&cfg.Addr, "TIERWISE_ADDR")
	setString(&cfg.NATSURL, "TIERWISE_NATS_URL")
	setString(&cfg.NATSSubject, "TIERWISE_NATS_SUBJECT")
	setString(&cfg.LogLevel, "TIERWISE_LOG_LEVEL")
	setString(&cfg.LogFormat, "TIERWISE_LOG_FORMAT")

	if v := os.Getenv("TIERWISE_CORS_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	var err error
	if cfg.SessionLimit, err = durationEnv("TIERWISE_SESSION_LIMIT", cfg.SessionLimit); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("TIERWISE_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}
	if v := os.Getenv("TIERWISE_GRADE_MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("config: TIERWISE_GRADE_MIN_CONFIDENCE=%q must be a number in [0,1]", v)
		}
		cfg.GradeMinConfidence = f
	}

	cfg.LLM = llm.ConfigFromEnv()
	return cfg, cfg.Validate()
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: TIERWISE_LOG_FORMAT=%q must be text or json", c.LogFormat)
	}
	if c.SessionLimit < 0 {
		return fmt.Errorf("config: session limit must not be negative")
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger builds the slog logger described by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: TIERWISE_LOG_LEVEL=%q: %w", s, err)
	}
	return level, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a valid duration: %w", key, v, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
