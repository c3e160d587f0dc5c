// Package config loads the service configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/berktorunDev/go-archetype/ratelimiter"
)

// Stats backend selectors for Config.Stats.Backend.
const (
	StatsNone   = "none"
	StatsMemory = "memory"
	StatsRedis  = "redis"
)

type Config struct {
	Server    ServerConfig
	RateLimit ratelimiter.GlobalPolicy
	Audit     AuditConfig
	Stats     StatsConfig
}

type ServerConfig struct {
	Port        string
	Development bool
}

type AuditConfig struct {
	Enabled bool
}

type StatsConfig struct {
	Backend string
	Redis   RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads the configuration from the environment. Malformed numeric or
// boolean values are errors; absent variables fall back to defaults. The
// rate-limit unit string is validated eagerly so a typo fails startup here
// rather than on the first limited request.
func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}

	development, err := getBool("DEVELOPMENT", false)
	if err != nil {
		return Config{}, err
	}
	server.Development = development

	rateLimit, err := buildRateLimit()
	if err != nil {
		return Config{}, err
	}

	auditEnabled, err := getBool("AUDIT_ENABLED", true)
	if err != nil {
		return Config{}, err
	}

	statsCfg, err := buildStats()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server:    server,
		RateLimit: rateLimit,
		Audit:     AuditConfig{Enabled: auditEnabled},
		Stats:     statsCfg,
	}, nil
}

func buildRateLimit() (ratelimiter.GlobalPolicy, error) {
	def := ratelimiter.DefaultGlobalPolicy()

	enabled, err := getBool("RATE_LIMIT_ENABLED", def.Enabled)
	if err != nil {
		return ratelimiter.GlobalPolicy{}, err
	}
	capacity, err := getInt("RATE_LIMIT_CAPACITY", def.Capacity)
	if err != nil {
		return ratelimiter.GlobalPolicy{}, err
	}
	duration, err := getInt("RATE_LIMIT_TIME", int(def.Time))
	if err != nil {
		return ratelimiter.GlobalPolicy{}, err
	}

	unit := getEnv("RATE_LIMIT_UNIT", def.Unit)
	if err := ratelimiter.ValidateUnit(unit); err != nil {
		return ratelimiter.GlobalPolicy{}, fmt.Errorf("RATE_LIMIT_UNIT: %w", err)
	}

	policy := ratelimiter.GlobalPolicy{
		Enabled:  enabled,
		Capacity: capacity,
		Time:     int64(duration),
		Unit:     unit,
	}

	// An enabled default must resolve to a usable policy; a zero capacity or
	// duration would otherwise deny every request from the first one.
	if _, err := ratelimiter.Resolve(nil, nil, policy); err != nil {
		return ratelimiter.GlobalPolicy{}, fmt.Errorf("rate limit configuration: %w", err)
	}

	return policy, nil
}

func buildStats() (StatsConfig, error) {
	backend := strings.ToLower(getEnv("STATS_BACKEND", StatsNone))
	switch backend {
	case StatsNone, StatsMemory, StatsRedis:
	default:
		return StatsConfig{}, fmt.Errorf("invalid STATS_BACKEND: %s", backend)
	}

	db, err := getInt("REDIS_DB", 0)
	if err != nil {
		return StatsConfig{}, err
	}

	return StatsConfig{
		Backend: backend,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		},
	}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
