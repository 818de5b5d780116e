package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/httpx"
	"github.com/joho/godotenv"
)

type Config struct {
	ClientID       string   // Required: application (client) id
	Authority      string   // Required: tenant authority URL
	ChallengeTypes []string // Optional: supported challenge types (default: oob,password)

	RetryCount      int           // Optional: resends after a 5xx (default: library default)
	RetryInterval   time.Duration // Optional: delay between resends (default: library default)
	FlowTimeout     time.Duration // Optional: bound on each call (default: 2m)
	PollMaxAttempts int           // Optional: password reset polls (default: library default)

	CacheDriver   string // Optional: memory, sqlite or redis (default: sqlite)
	CachePath     string // Optional: sqlite file (default: ./nativeauth.db)
	CacheKeyFile  string // Optional: key material for encrypting cached tokens
	RedisAddr     string // Optional: redis address (default: localhost:6379)
	RedisPassword string // Optional: redis password
	RedisDB       int    // Optional: redis database (default: 0)

	MetricsAddr   string // Optional: serve Prometheus metrics on this address
	OutboundLimit httpx.RateLimitConfig

	Env       string // Environment (dev, staging, prod) (default: prod)
	LogLevel  string // Log level (debug, info, warn, error) (default: warn)
	LogFormat string // Log format (json, text) (default: text)
}

// LoadConfig reads the environment, after loading .env from the working
// directory if there is one.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		ClientID:        os.Getenv("NATIVEAUTH_CLIENT_ID"),
		Authority:       os.Getenv("NATIVEAUTH_AUTHORITY"),
		ChallengeTypes:  getEnvListOrDefault("NATIVEAUTH_CHALLENGE_TYPES", nil),
		RetryCount:      getEnvIntOrDefault("NATIVEAUTH_RETRY_COUNT", 0),
		RetryInterval:   getEnvDurationOrDefault("NATIVEAUTH_RETRY_INTERVAL", 0),
		FlowTimeout:     getEnvDurationOrDefault("NATIVEAUTH_FLOW_TIMEOUT", 2*time.Minute),
		PollMaxAttempts: getEnvIntOrDefault("NATIVEAUTH_POLL_MAX_ATTEMPTS", 0),
		CacheDriver:     getEnvOrDefault("NATIVEAUTH_CACHE_DRIVER", "sqlite"),
		CachePath:       getEnvOrDefault("NATIVEAUTH_CACHE_PATH", "nativeauth.db"),
		CacheKeyFile:    os.Getenv("NATIVEAUTH_CACHE_KEY_FILE"),
		RedisAddr:       getEnvOrDefault("NATIVEAUTH_REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("NATIVEAUTH_REDIS_PASSWORD"),
		RedisDB:         getEnvIntOrDefault("NATIVEAUTH_REDIS_DB", 0),
		MetricsAddr:     os.Getenv("NATIVEAUTH_METRICS_ADDR"),
		OutboundLimit:   httpx.ParseRateLimitFromEnv("OUTBOUND", httpx.OutboundLimit),
		Env:             getEnvOrDefault("ENV", "prod"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// getEnvListOrDefault splits a comma or space separated value.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return defaultValue
	}
	return fields
}
