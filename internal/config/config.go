package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	JWTSecret string

	// Google Sheets export
	GoogleSpreadsheetID  string
	GoogleSheetName      string
	GoogleCredentialFile string

	// Engine
	StreamHeartbeat time.Duration

	// Dashboard cache
	CacheTTL      time.Duration
	CacheCapacity int

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port:      getEnv("PORT", "8081"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finease.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finease"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_changes"),

		JWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		GoogleSpreadsheetID:  getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:      getEnv("GOOGLE_SHEET_NAME", "Report"),
		GoogleCredentialFile: getEnv("GOOGLE_CREDENTIAL_FILE", ""),

		StreamHeartbeat: getEnvDuration("STREAM_HEARTBEAT", 30*time.Second),

		CacheTTL:      getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheCapacity: getEnvInt("CACHE_CAPACITY", 256),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate log level and format
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate auth configuration
	if c.JWTSecret == "" {
		errors = append(errors, "AUTH_JWT_SECRET must be provided")
	} else if len(c.JWTSecret) < 16 {
		errors = append(errors, "AUTH_JWT_SECRET must be at least 16 characters")
	}

	// Validate Google Sheets export configuration if enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is provided")
		}
		if c.GoogleCredentialFile == "" {
			errors = append(errors, "GOOGLE_CREDENTIAL_FILE must be provided when a spreadsheet ID is provided")
		} else if _, err := os.Stat(c.GoogleCredentialFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credential file does not exist: %s", c.GoogleCredentialFile))
		}
	}

	// Validate stream and cache settings
	if c.StreamHeartbeat < time.Second {
		errors = append(errors, fmt.Sprintf("invalid stream heartbeat %v: must be at least 1 second", c.StreamHeartbeat))
	} else if c.StreamHeartbeat > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid stream heartbeat %v: must be at most 1 hour", c.StreamHeartbeat))
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheCapacity < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache capacity %d: must be at least 1", c.CacheCapacity))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsExportEnabled reports whether the Google Sheets exporter is configured
func (c *Config) SheetsExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
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
