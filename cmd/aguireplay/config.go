package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the replay configuration loaded from environment variables.
// Flags override it.
type Config struct {
	LogLevel string // debug, info, warn, error

	// Thread identity
	AgentID  string
	ThreadID string

	// Tools
	Manifest string
	Execute  bool
	Timeout  time.Duration
}

// LoadConfig loads configuration from environment variables.
// It loads a .env file if present (silent fail if not found).
func LoadConfig() (*Config, error) {
	godotenv.Load() // Load .env file if present

	cfg := &Config{
		LogLevel: getEnvOrDefault("AGUIKIT_LOG_LEVEL", "info"),
		AgentID:  os.Getenv("AGUIKIT_AGENT_ID"),
		ThreadID: os.Getenv("AGUIKIT_THREAD_ID"),
		Manifest: os.Getenv("AGUIKIT_TOOLS"),
		Execute:  getEnvBoolOrDefault("AGUIKIT_EXECUTE", true),
		Timeout:  getEnvDurationOrDefault("AGUIKIT_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("AGUIKIT_TIMEOUT must be positive, got %s", c.Timeout)
	}
	return nil
}

// Logger returns a text logger on stderr at the configured level.
func (c *Config) Logger() *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s (must be debug, info, warn, or error)", s)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
