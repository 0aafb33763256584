package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/timemachinetv/timemachine/internal/request"
)

type Config struct {
	Port    string
	BaseURL string

	GenerationBaseURL string
	DefaultKey        string

	MediaProbe        bool
	MediaProbeTimeout time.Duration

	SessionTTL time.Duration

	LogLevel slog.Level

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; variables already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		GenerationBaseURL: getEnv("POLLINATIONS_BASE_URL", request.DefaultBaseURL),
		DefaultKey:        os.Getenv("POLLINATIONS_KEY"),
	}

	var err error
	if cfg.MediaProbe, err = getEnvBool("MEDIA_PROBE", false); err != nil {
		return nil, err
	}
	if cfg.MediaProbeTimeout, err = getEnvDuration("MEDIA_PROBE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getEnvFloat("RATE_LIMIT_RPS", 1); err != nil {
		return nil, err
	}
	burst, err := getEnvFloat("RATE_LIMIT_BURST", 5)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitBurst = int(burst)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return parsed, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, value)
	}
	return parsed, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
