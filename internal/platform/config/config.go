// Package config loads application configuration from environment variables.
// All variables use the PLANNER_ prefix.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Log       LogConfig
	Planner   PlannerConfig
	RulesPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	Host        string
	MaxUploadMB int
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL selects
// the in-memory plan store.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Migrate  bool
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL
// disables the extraction cache.
type CacheConfig struct {
	URL        string
	TTLMinutes int
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// PlannerConfig holds the extraction and scheduling limits.
type PlannerConfig struct {
	TopicLimit     int
	ReferenceLimit int
	FlatLineLimit  int
	MinTasksPerDay int
	MaxTasksPerDay int
	SearchURL      string
}

// Load reads configuration from environment variables with PLANNER_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        envInt("PLANNER_SERVER_PORT", 8080),
			Host:        envStr("PLANNER_SERVER_HOST", "0.0.0.0"),
			MaxUploadMB: envInt("PLANNER_MAX_UPLOAD_MB", 10),
		},
		Database: DatabaseConfig{
			URL:      envStr("PLANNER_DATABASE_URL", ""),
			MaxConns: envInt("PLANNER_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("PLANNER_DATABASE_MIN_CONNS", 5),
			Migrate:  envBool("PLANNER_DATABASE_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL:        envStr("PLANNER_CACHE_URL", ""),
			TTLMinutes: envInt("PLANNER_CACHE_TTL_MINUTES", 1440),
		},
		Log: LogConfig{
			Level:  envStr("PLANNER_LOG_LEVEL", "info"),
			Format: envStr("PLANNER_LOG_FORMAT", "json"),
		},
		Planner: PlannerConfig{
			TopicLimit:     envInt("PLANNER_TOPIC_LIMIT", 35),
			ReferenceLimit: envInt("PLANNER_REFERENCE_LIMIT", 10),
			FlatLineLimit:  envInt("PLANNER_FLAT_LINE_LIMIT", 40),
			MinTasksPerDay: envInt("PLANNER_MIN_TASKS_PER_DAY", 3),
			MaxTasksPerDay: envInt("PLANNER_MAX_TASKS_PER_DAY", 6),
			SearchURL:      envStr("PLANNER_SEARCH_URL", "https://www.google.com/search?q="),
		},
		RulesPath: envStr("PLANNER_RULES_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	p := c.Planner
	for name, v := range map[string]int{
		"PLANNER_TOPIC_LIMIT":       p.TopicLimit,
		"PLANNER_REFERENCE_LIMIT":   p.ReferenceLimit,
		"PLANNER_FLAT_LINE_LIMIT":   p.FlatLineLimit,
		"PLANNER_MIN_TASKS_PER_DAY": p.MinTasksPerDay,
		"PLANNER_MAX_UPLOAD_MB":     c.Server.MaxUploadMB,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}

	if p.MaxTasksPerDay < p.MinTasksPerDay {
		return fmt.Errorf("PLANNER_MAX_TASKS_PER_DAY (%d) must be >= PLANNER_MIN_TASKS_PER_DAY (%d)",
			p.MaxTasksPerDay, p.MinTasksPerDay)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("PLANNER_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("PLANNER_LOG_LEVEL must be debug, info, warn or error, got %q", l.Level)
}

// NewLogger builds the process logger from the log settings.
func (l LogConfig) NewLogger() *slog.Logger {
	level, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
