package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	IdentityModeSession = "session"
	IdentityModeFixed   = "fixed"
)

var (
	validBackends      = []string{"memory", "sqlite", "postgres"}
	validIdentityModes = []string{IdentityModeSession, IdentityModeFixed}
)

type Config struct {
	// HTTP Server
	Port           string
	Env            string
	AllowedOrigins []string
	RateLimit      int

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string
	AutoMigrate  bool

	// Identity
	IdentityMode   string
	IdentityHeader string
	FixedOwnerKey  string

	// AMQP change events; disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string

	// Summary cache
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "4000"),
		Env:            getEnv("ENV", EnvDevelopment),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bilancio.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AutoMigrate:  getEnvBool("AUTO_MIGRATE", true),

		IdentityMode:   getEnv("IDENTITY_MODE", IdentityModeSession),
		IdentityHeader: getEnv("IDENTITY_HEADER", "X-Session-Id"),
		FixedOwnerKey:  getEnv("FIXED_OWNER_KEY", "00000000-0000-0000-0000-000000000001"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bilancio.events"),

		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 500),
		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),
	}
}

// IsProduction reports whether the server runs with production rules.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// or postgresql:// URL")
		}
	}

	if !slices.Contains(validIdentityModes, c.IdentityMode) {
		errors = append(errors, fmt.Sprintf("invalid identity mode '%s': must be one of %v", c.IdentityMode, validIdentityModes))
	}
	if c.IdentityMode == IdentityModeSession && strings.TrimSpace(c.IdentityHeader) == "" {
		errors = append(errors, "identity header cannot be empty in session mode")
	}
	if c.IdentityMode == IdentityModeFixed && strings.TrimSpace(c.FixedOwnerKey) == "" {
		errors = append(errors, "fixed owner key cannot be empty in fixed mode")
	}

	if c.IsProduction() && len(c.AllowedOrigins) == 0 {
		errors = append(errors, "ALLOWED_ORIGINS must list at least one origin in production")
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			errors = append(errors, "ALLOWED_ORIGINS cannot contain '*': list explicit origins")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimit))
	}
	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}
	if c.SummaryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be at least 1 second", c.SummaryCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
