// Package config reads process configuration from the environment.
//
// A .env file in the working directory is loaded first when present.
// Variables already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port int

	DBPath        string
	DBOpenTimeout time.Duration

	SessionFile            string
	SeedDemoAccounts       bool
	SessionMonitorInterval time.Duration
	SessionExpiryHorizon   time.Duration
	SessionCleanupInterval time.Duration

	NewsCacheTTL time.Duration

	// Simulated backend latency; both zero disables it.
	LatencyMin time.Duration
	LatencyMax time.Duration

	LogLevel slog.Level
}

// Load reads .env (or the given files) and then the environment. Missing
// files are ignored; malformed values are errors.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var p parser
	cfg := Config{
		Port:                   p.int("PORT", 8080),
		DBPath:                 GetEnv("DB_PATH", "data/newsdesk.db"),
		DBOpenTimeout:          p.duration("DB_OPEN_TIMEOUT", 10*time.Second),
		SessionFile:            GetEnv("SESSION_FILE", "data/session.json"),
		SeedDemoAccounts:       p.bool("SEED_DEMO_ACCOUNTS", false),
		SessionMonitorInterval: p.duration("SESSION_MONITOR_INTERVAL", time.Minute),
		SessionExpiryHorizon:   p.duration("SESSION_EXPIRY_HORIZON", 5*time.Minute),
		SessionCleanupInterval: p.duration("SESSION_CLEANUP_INTERVAL", 30*time.Minute),
		NewsCacheTTL:           p.duration("NEWS_CACHE_TTL", 15*time.Minute),
		LatencyMin:             p.duration("SIMULATED_LATENCY_MIN", 0),
		LatencyMax:             p.duration("SIMULATED_LATENCY_MAX", 0),
		LogLevel:               p.level("LOG_LEVEL", slog.LevelInfo),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the process cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	for name, d := range map[string]time.Duration{
		"DB_OPEN_TIMEOUT":          c.DBOpenTimeout,
		"SESSION_MONITOR_INTERVAL": c.SessionMonitorInterval,
		"SESSION_CLEANUP_INTERVAL": c.SessionCleanupInterval,
		"NEWS_CACHE_TTL":           c.NewsCacheTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.SessionExpiryHorizon < 0 {
		errs = append(errs, fmt.Errorf("SESSION_EXPIRY_HORIZON must not be negative, got %s", c.SessionExpiryHorizon))
	}
	if c.LatencyMin < 0 || c.LatencyMax < 0 {
		errs = append(errs, errors.New("simulated latency must not be negative"))
	}
	if c.LatencyMin > c.LatencyMax {
		errs = append(errs, fmt.Errorf("SIMULATED_LATENCY_MIN (%s) exceeds SIMULATED_LATENCY_MAX (%s)", c.LatencyMin, c.LatencyMax))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// GetEnv returns the variable or defaultValue when it is unset or empty.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects every malformed variable so Load can report them together.
type parser struct {
	errs []error
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return def
	}
	return d
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a log level", key, raw))
		return def
	}
	return lvl
}
