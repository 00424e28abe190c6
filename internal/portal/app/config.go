package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer        string        // Issuer claim for session and reset tokens, and TOTP issuer label
	BaseURL       string        // External base URL used to build reset links (default: http://localhost:<port>)
	DatabaseFile  string        // Path to SQLite database file (default: ./portal.db)
	PepperFile    string        // Path to the password-hashing pepper file (default: ./pepper)
	SecretKeyFile string        // Path to the token signing key file (default: ./secret.key)
	SessionTTL    time.Duration // Session cookie lifetime (default: 12h)
	ResetTokenTTL time.Duration // Password-reset token lifetime (default: 1h)
	SecureCookies bool          // Set the Secure flag on cookies (default: true outside dev)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Stale-nonce sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("PORTAL_ISSUER", "authportal"),
		BaseURL:              os.Getenv("PORTAL_BASE_URL"),
		DatabaseFile:         getEnvOrDefault("PORTAL_DATABASE_FILE", "portal.db"),
		PepperFile:           getEnvOrDefault("PORTAL_PEPPER_FILE", "pepper"),
		SecretKeyFile:        getEnvOrDefault("PORTAL_SECRET_KEY_FILE", "secret.key"),
		SessionTTL:           getEnvDurationOrDefault("PORTAL_SESSION_TTL", 12*time.Hour),
		ResetTokenTTL:        getEnvDurationOrDefault("PORTAL_RESET_TOKEN_TTL", time.Hour),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + strconv.Itoa(cfg.Port)
	}
	cfg.SecureCookies = cfg.Env != "dev"

	return cfg
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

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are read as seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
