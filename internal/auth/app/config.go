package app

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TokenSecret string // Required: HMAC secret for signing session tokens

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 5m)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 30m)

	SessionStore string // Optional: session store backend (redis, memory) (default: redis)
	RedisAddr    string // Optional: redis address (default: localhost:6379)
	RedisDB      int    // Optional: redis database number (default: 0)

	CookieSecure   bool   // Optional: set the Secure attribute on auth cookies (default: true)
	CookieSameSite string // Optional: SameSite attribute (strict, lax, none) (default: strict)

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./sessiond.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		TokenSecret:         os.Getenv("SESSION_TOKEN_SECRET"),
		AccessTokenTTL:      getEnvDurationOrDefault("SESSION_ACCESS_TTL", 5*time.Minute),
		RefreshTokenTTL:     getEnvDurationOrDefault("SESSION_REFRESH_TTL", 30*time.Minute),
		SessionStore:        getEnvOrDefault("SESSION_STORE", "redis"),
		RedisAddr:           getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisDB:             getEnvIntOrDefault("REDIS_DB", 0),
		CookieSecure:        getEnvBoolOrDefault("COOKIE_SECURE", true),
		CookieSameSite:      getEnvOrDefault("COOKIE_SAMESITE", "strict"),
		DatabaseFile:        getEnvOrDefault("SESSION_DATABASE_FILE", "sessiond.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// SameSite maps the configured string onto the stdlib constant. Unknown
// values fall back to strict.
func (c Config) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
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

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
