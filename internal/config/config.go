// Package config loads vaultmerge configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/illarion/vaultmerge/internal/crypto"
)

const defaultMaxDepth = 512

// Config holds the settings read from VAULTMERGE_* environment variables.
type Config struct {
	// Password applies to any store without a role-specific password.
	Password       string
	SourcePassword string
	TargetPassword string

	LogLevel  string
	LogFormat string

	Iterations int
	MaxDepth   int
	NoKeyring  bool
}

// PasswordFor returns the non-interactive password configured for role
// ("source" or "target"), falling back to the generic one.
func (c *Config) PasswordFor(role string) string {
	switch role {
	case "source":
		if c.SourcePassword != "" {
			return c.SourcePassword
		}
	case "target":
		if c.TargetPassword != "" {
			return c.TargetPassword
		}
	}
	return c.Password
}

// Load reads configuration from environment variables and returns a validated Config.
// Passwords (VAULTMERGE_PASSWORD, VAULTMERGE_SOURCE_PASSWORD,
// VAULTMERGE_TARGET_PASSWORD) are optional; without them the user is prompted.
// Optional variables with defaults: VAULTMERGE_LOG_LEVEL (warn),
// VAULTMERGE_LOG_FORMAT (text), VAULTMERGE_KDF_ITERATIONS (210000),
// VAULTMERGE_MAX_DEPTH (512), VAULTMERGE_NO_KEYRING (false).
func Load() (*Config, error) {
	cfg := &Config{
		Password:       os.Getenv("VAULTMERGE_PASSWORD"),
		SourcePassword: os.Getenv("VAULTMERGE_SOURCE_PASSWORD"),
		TargetPassword: os.Getenv("VAULTMERGE_TARGET_PASSWORD"),
		LogLevel:       "warn",
		LogFormat:      "text",
		Iterations:     crypto.DefaultIters,
		MaxDepth:       defaultMaxDepth,
	}

	if v, ok := os.LookupEnv("VAULTMERGE_LOG_LEVEL"); ok && v != "" {
		level := strings.ToLower(strings.TrimSpace(v))
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			return nil, fmt.Errorf("VAULTMERGE_LOG_LEVEL must be one of debug, info, warn, error, got %q", v)
		}
	}

	if v, ok := os.LookupEnv("VAULTMERGE_LOG_FORMAT"); ok && v != "" {
		format := strings.ToLower(strings.TrimSpace(v))
		if format != "text" && format != "json" {
			return nil, fmt.Errorf("VAULTMERGE_LOG_FORMAT must be text or json, got %q", v)
		}
		cfg.LogFormat = format
	}

	if v, ok := os.LookupEnv("VAULTMERGE_KDF_ITERATIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("VAULTMERGE_KDF_ITERATIONS has invalid value %q: %w", v, err)
		}
		if n < crypto.MinIters || n > crypto.MaxIters {
			return nil, fmt.Errorf("VAULTMERGE_KDF_ITERATIONS must be between %d and %d, got %d", crypto.MinIters, crypto.MaxIters, n)
		}
		cfg.Iterations = n
	}

	if v, ok := os.LookupEnv("VAULTMERGE_MAX_DEPTH"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("VAULTMERGE_MAX_DEPTH has invalid value %q: %w", v, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("VAULTMERGE_MAX_DEPTH must be positive, got %d", n)
		}
		cfg.MaxDepth = n
	}

	if v, ok := os.LookupEnv("VAULTMERGE_NO_KEYRING"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("VAULTMERGE_NO_KEYRING has invalid value %q: %w", v, err)
		}
		cfg.NoKeyring = b
	}

	return cfg, nil
}
