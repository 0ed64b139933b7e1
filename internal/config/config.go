// Package config loads the process-wide settings once at startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "config.yaml"

// Config is immutable after Load returns.
type Config struct {
	DataRoot     string         `yaml:"data_root"`
	Secret       string         `yaml:"secret"`
	Addr         string         `yaml:"addr"`
	GraphRAG     GraphRAGConfig `yaml:"graphrag"`
	Methods      []string       `yaml:"methods"`
	HistoryDB    string         `yaml:"history_db"` // Empty disables history
	WatchListing bool           `yaml:"watch_listing"`
	LogLevel     string         `yaml:"log_level"`
}

// GraphRAGConfig describes how the engine is launched.
type GraphRAGConfig struct {
	Executable  string   `yaml:"executable"`
	Args        []string `yaml:"args"`
	TimeoutSecs int      `yaml:"timeout"` // 0 waits forever
	Env         []string `yaml:"env"`     // Extra KEY=VALUE pairs for the engine
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataRoot: "data",
		Secret:   "dev-secret",
		Addr:     ":5000",
		GraphRAG: GraphRAGConfig{
			Executable: "python3",
			Args:       []string{"-m", "graphrag"},
		},
		Methods:      []string{"global", "local", "drift", "basic"},
		WatchListing: true,
		LogLevel:     "info",
	}
}

// Load reads path (if present), then .env, then environment overrides.
// A missing file is only an error when path is not DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// Existing environment variables take precedence over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.DataRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving data root: %w", err)
	}
	cfg.DataRoot = root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATA_ROOT"); v != "" {
		c.DataRoot = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Secret = v
	} else if v := os.Getenv("FLASK_SECRET"); v != "" {
		c.Secret = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("GRAPHRAG_EXECUTABLE"); v != "" {
		c.GraphRAG.Executable = v
	}
	if v := os.Getenv("GRAPHRAG_ARGS"); v != "" {
		c.GraphRAG.Args = strings.Fields(v)
	}
	if v := os.Getenv("GRAPHRAG_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRAPHRAG_TIMEOUT: %w", err)
		}
		c.GraphRAG.TimeoutSecs = secs
	}
	if v := os.Getenv("HISTORY_DB"); v != "" {
		c.HistoryDB = v
	}
	if v := os.Getenv("WATCH_LISTING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WATCH_LISTING: %w", err)
		}
		c.WatchListing = b
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks settings that would otherwise fail on the first request.
func (c *Config) Validate() error {
	if c.GraphRAG.Executable == "" {
		return errors.New("graphrag.executable must be set")
	}
	if c.GraphRAG.TimeoutSecs < 0 {
		return fmt.Errorf("graphrag.timeout must not be negative, got %d", c.GraphRAG.TimeoutSecs)
	}
	if len(c.Methods) == 0 {
		return errors.New("methods must list at least one search method")
	}
	if c.Secret == "" {
		return errors.New("secret must be set")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// QueryTimeout returns the engine timeout, zero when disabled.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.GraphRAG.TimeoutSecs) * time.Second
}

// ListingPath is where the dataset listing lives.
func (c *Config) ListingPath() string {
	return filepath.Join(c.DataRoot, "listing.json")
}

// UsesDefaultSecret reports whether the development placeholder is in use.
func (c *Config) UsesDefaultSecret() bool {
	return c.Secret == Default().Secret
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
