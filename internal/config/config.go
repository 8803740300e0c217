// Package config loads the command line configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dbarchive/internal/archive"
)

// Config holds the settings shared by all commands.
type Config struct {
	// DB is the data source URL, e.g. sqlite3://events.db.
	DB string `yaml:"db"`

	// BatchSize is the number of objects committed per transaction by tree
	// operations. Zero disables batching.
	BatchSize int `yaml:"batch_size"`

	// PublicObjectCache makes cursors return already loaded public objects
	// instead of reading them again.
	PublicObjectCache bool `yaml:"public_object_cache"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BatchSize: archive.DefaultBatchSize,
		LogLevel:  "info",
	}
}

// Load reads a YAML configuration file. Keys missing from the file keep their
// default values; unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the value ranges.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative, got %d", c.BatchSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ArchiveOptions translates the configuration into archive options.
func (c *Config) ArchiveOptions() []archive.Option {
	return []archive.Option{
		archive.WithBatchSize(c.BatchSize),
		archive.WithPublicObjectCacheLookup(c.PublicObjectCache),
	}
}

// ParseLevel parses a log level name. The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
}
