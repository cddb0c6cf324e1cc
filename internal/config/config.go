// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port        string
	MetricsPath string

	// Storage
	StorageBackend string
	DBPath         string

	// Auth
	JWTSecret     string
	TokenDuration time.Duration

	// Logging
	LogLevel string

	// AMQP (optional; events are dropped when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string

	// Balance aggregation
	BalanceConcurrency int
	BalanceTimeout     time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		MetricsPath: getEnv("METRICS_PATH", "/metrics"),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendSQLite),
		DBPath:         getEnv("DB_PATH", "./data/ledger.db"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenDuration: getEnvDuration("TOKEN_DURATION", 24*time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "splitledger"),

		BalanceConcurrency: getEnvInt("BALANCE_CONCURRENCY", 8),
		BalanceTimeout:     getEnvDuration("BALANCE_TIMEOUT", 5*time.Second),
	}
}

// Validate returns every configuration problem in one error.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !strings.HasPrefix(c.MetricsPath, "/") {
		problems = append(problems, fmt.Sprintf("invalid metrics path '%s': must start with /", c.MetricsPath))
	}

	switch c.StorageBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			problems = append(problems, "database path cannot be empty when using sqlite backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid storage backend '%s': must be one of [%s %s]",
			c.StorageBackend, BackendSQLite, BackendMemory))
	}

	if len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT secret must be at least 32 characters")
	}
	if c.TokenDuration < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid token duration %v: must be at least 1 minute", c.TokenDuration))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.BalanceConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid balance concurrency %d: must be at least 1", c.BalanceConcurrency))
	}
	if c.BalanceTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid balance timeout %v: must be positive", c.BalanceTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
