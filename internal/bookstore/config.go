// Package bookstore is the console harness that seeds a "books" collection
// and replays the fixed sequence of bookstore queries against the engine.
package bookstore

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Collection string `yaml:"collection"` // "books"
	SeedPath   string `yaml:"seed_path"`  // empty = embedded seed

	// Pagination demo
	Page     int `yaml:"page"`      // 1-based
	PageSize int `yaml:"page_size"` // 5

	// Engine
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`

	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Collection:         "books",
		Page:               1,
		PageSize:           5,
		SlowQueryThreshold: 100 * time.Millisecond,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// LoadConfig reads the YAML configuration file using strict parsing.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig() // Start with defaults

	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("YAML syntax error in config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the values a config file may have broken.
func (c Config) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("collection must not be empty")
	}
	if c.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", c.Page)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be >= 1, got %d", c.PageSize)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format '%s'", c.LogFormat)
	}
	return nil
}

// NewLogger builds the slog logger described by the config.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unknown log_level '%s'", s)
	}
	return level, nil
}
