// Package config loads babbly settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Storage
	DBPath string `env:"BABBLY_DB"`

	// Logging
	LogLevel string `env:"BABBLY_LOG_LEVEL" envDefault:"warn"`

	// Nightly digest, standard five-field cron syntax
	DigestSchedule string `env:"BABBLY_DIGEST_SCHEDULE" envDefault:"0 21 * * *"`

	// IANA zone used for "today" and exported times; empty means local time
	TZ string `env:"BABBLY_TZ"`
}

// Load reads .env from the working directory when present, then parses the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	var err error
	if environ != nil {
		err = env.Parse(cfg, env.Options{Environment: environ})
	} else {
		err = env.Parse(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DBPath == "" {
		home, _ := os.UserHomeDir()
		cfg.DBPath = filepath.Join(home, ".babbly", "babbly.db")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves TZ.
func (c *Config) Location() (*time.Location, error) {
	if c.TZ == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("invalid BABBLY_TZ %q: %w", c.TZ, err)
	}
	return loc, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid BABBLY_LOG_LEVEL %q", s)
	}
	return level, nil
}
