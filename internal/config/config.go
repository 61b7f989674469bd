// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret is the development HS256 secret. It is rejected in production.
const DefaultJWTSecret = "dev-secret-change-in-production"

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreGorm   = "gorm"
	StoreMemory = "memory"
)

// CleanerConfig controls the scheduled timeout and cleanup sweeps.
type CleanerConfig struct {
	Enabled         bool
	MaxRunTime      time.Duration // default 1h
	Retention       time.Duration // default 168h (7 days)
	TimeoutSchedule string        // cron spec, default "@every 5m"
	CleanupSchedule string        // cron spec, default "@every 1h"
	SweepTimeout    time.Duration // default 1m
}

// Config holds the configuration for the async query service.
type Config struct {
	MetaDBPath   string // path to the SQLite file holding async query records
	StoreBackend string // sqlite (default), gorm or memory
	ListenAddr   string // HTTP listen address (default ":8080")
	LogLevel     string // log level: debug, info, warn, error (default "info")
	Env          string // environment: "development" (default) or "production"
	JWTSecret    string // HS256 secret for admin API bearer tokens

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Cleaner CleanerConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// fileConfig is the YAML form read from CONFIG_FILE. Every field maps to one
// environment variable, which takes precedence when set.
type fileConfig struct {
	MetaDBPath         string   `yaml:"meta_db_path"`
	StoreBackend       string   `yaml:"store_backend"`
	ListenAddr         string   `yaml:"listen_addr"`
	LogLevel           string   `yaml:"log_level"`
	Env                string   `yaml:"env"`
	JWTSecret          string   `yaml:"jwt_secret"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	RateLimit          struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Cleaner struct {
		Enabled         *bool  `yaml:"enabled"`
		MaxRunTime      string `yaml:"max_run_time"`
		Retention       string `yaml:"retention"`
		TimeoutSchedule string `yaml:"timeout_schedule"`
		CleanupSchedule string `yaml:"cleanup_schedule"`
		SweepTimeout    string `yaml:"sweep_timeout"`
	} `yaml:"cleaner"`
}

func (f *fileConfig) values() map[string]string {
	v := map[string]string{
		"META_DB_PATH":           f.MetaDBPath,
		"STORE_BACKEND":          f.StoreBackend,
		"LISTEN_ADDR":            f.ListenAddr,
		"LOG_LEVEL":              f.LogLevel,
		"ENV":                    f.Env,
		"JWT_SECRET":             f.JWTSecret,
		"CORS_ALLOWED_ORIGINS":   strings.Join(f.CORSAllowedOrigins, ","),
		"ASYNC_MAX_RUN_TIME":     f.Cleaner.MaxRunTime,
		"ASYNC_RETENTION":        f.Cleaner.Retention,
		"ASYNC_TIMEOUT_SCHEDULE": f.Cleaner.TimeoutSchedule,
		"ASYNC_CLEANUP_SCHEDULE": f.Cleaner.CleanupSchedule,
		"ASYNC_SWEEP_TIMEOUT":    f.Cleaner.SweepTimeout,
	}
	if f.RateLimit.RPS != 0 {
		v["RATE_LIMIT_RPS"] = strconv.FormatFloat(f.RateLimit.RPS, 'f', -1, 64)
	}
	if f.RateLimit.Burst != 0 {
		v["RATE_LIMIT_BURST"] = strconv.Itoa(f.RateLimit.Burst)
	}
	if f.Cleaner.Enabled != nil {
		v["ASYNC_CLEANER_ENABLED"] = strconv.FormatBool(*f.Cleaner.Enabled)
	}
	return v
}

func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc.values(), nil
}

// LoadFromEnv loads configuration from environment variables. When
// CONFIG_FILE names a YAML file, its values fill in variables that are unset.
func LoadFromEnv() (*Config, error) {
	file := map[string]string{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if file, err = readConfigFile(path); err != nil {
			return nil, err
		}
	}
	getenv := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return file[key]
	}

	cfg := &Config{
		MetaDBPath:   getenv("META_DB_PATH"),
		StoreBackend: strings.ToLower(getenv("STORE_BACKEND")),
		ListenAddr:   getenv("LISTEN_ADDR"),
		LogLevel:     getenv("LOG_LEVEL"),
		Env:          getenv("ENV"),
		JWTSecret:    getenv("JWT_SECRET"),
		Cleaner: CleanerConfig{
			Enabled:         parseBoolDefault(getenv("ASYNC_CLEANER_ENABLED"), true),
			TimeoutSchedule: getenv("ASYNC_TIMEOUT_SCHEDULE"),
			CleanupSchedule: getenv("ASYNC_CLEANUP_SCHEDULE"),
		},
	}

	// Rate limiting
	if v := getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// Cleaner durations
	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"ASYNC_MAX_RUN_TIME", &cfg.Cleaner.MaxRunTime, time.Hour},
		{"ASYNC_RETENTION", &cfg.Cleaner.Retention, 7 * 24 * time.Hour},
		{"ASYNC_SWEEP_TIMEOUT", &cfg.Cleaner.SweepTimeout, time.Minute},
	}
	for _, d := range durations {
		*d.dst = d.def
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", d.key, v)
		}
		*d.dst = parsed
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "asyncq.sqlite"
	}
	switch cfg.StoreBackend {
	case "":
		cfg.StoreBackend = StoreSQLite
	case StoreSQLite, StoreGorm:
	case StoreMemory:
		cfg.Warnings = append(cfg.Warnings, "STORE_BACKEND=memory: async query records are lost on restart")
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be one of %s, %s, %s; got %q", StoreSQLite, StoreGorm, StoreMemory, cfg.StoreBackend)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set; using insecure default. Set JWT_SECRET in production!")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Cleaner.TimeoutSchedule == "" {
		cfg.Cleaner.TimeoutSchedule = "@every 5m"
	}
	if cfg.Cleaner.CleanupSchedule == "" {
		cfg.Cleaner.CleanupSchedule = "@every 1h"
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.JWTSecret == DefaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.StoreBackend == StoreMemory {
			return nil, fmt.Errorf("STORE_BACKEND=memory is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseBoolDefault(v string, defaultVal bool) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
