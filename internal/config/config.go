// Package config loads gateway and agent settings from the environment.
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

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Backend selection
	DataBackend string

	// Google Sheets
	SpreadsheetID        string
	GoogleServiceKey     string
	GoogleServiceKeyFile string
	ValueInputOption     string

	// Ledger semantics
	DateMatch string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel string
	LogFile  string

	// Agent
	GatewayURL    string
	CachePath     string
	ProbeInterval time.Duration
	HTTPTimeout   time.Duration
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),

		SpreadsheetID:        getEnv("SHEET_ID", getEnv("GOOGLE_SPREADSHEET_ID", "")),
		GoogleServiceKey:     getEnv("GOOGLE_SERVICE_KEY", ""),
		GoogleServiceKeyFile: getEnv("GOOGLE_SERVICE_KEY_FILE", ""),
		ValueInputOption:     strings.ToUpper(getEnv("GOOGLE_VALUE_INPUT_OPTION", "USER_ENTERED")),

		DateMatch: strings.ToLower(getEnv("LEDGER_DATE_MATCH", "calendar")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_rows"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		GatewayURL:    getEnv("LEDGER_GATEWAY_URL", "http://localhost:8081/api/ledger"),
		CachePath:     getEnv("LEDGER_CACHE_PATH", "./data/ledger-cache.db"),
		ProbeInterval: getEnvDuration("LEDGER_PROBE_INTERVAL", 15*time.Second),
		HTTPTimeout:   getEnvDuration("LEDGER_HTTP_TIMEOUT", 15*time.Second),
	}
}

// Validate checks the settings the gateway server needs and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSheets}
	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSheets {
		if c.SpreadsheetID == "" {
			errs = append(errs, "SHEET_ID is required when using sheets backend")
		}
		if c.GoogleServiceKey == "" && c.GoogleServiceKeyFile == "" {
			errs = append(errs, "either GOOGLE_SERVICE_KEY or GOOGLE_SERVICE_KEY_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceKeyFile != "" {
			if _, err := os.Stat(c.GoogleServiceKeyFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service key file does not exist: %s", c.GoogleServiceKeyFile))
			}
		}
	}

	if c.ValueInputOption != "USER_ENTERED" && c.ValueInputOption != "RAW" {
		errs = append(errs, fmt.Sprintf("invalid value input option '%s': must be USER_ENTERED or RAW", c.ValueInputOption))
	}

	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	errs = append(errs, c.validateShared()...)
	return joinErrors(errs)
}

// ValidateAgent checks the settings the ledger agent needs.
func (c *Config) ValidateAgent() error {
	var errs []string

	if u, err := url.Parse(c.GatewayURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid gateway URL '%s': must be an absolute URL", c.GatewayURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid gateway URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}

	if c.CachePath == "" {
		errs = append(errs, "LEDGER_CACHE_PATH cannot be empty")
	}

	if c.ProbeInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid probe interval %v: must be at least 1 second", c.ProbeInterval))
	} else if c.ProbeInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid probe interval %v: must be at most 24 hours", c.ProbeInterval))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid HTTP timeout %v: must be positive", c.HTTPTimeout))
	}

	errs = append(errs, c.validateShared()...)
	return joinErrors(errs)
}

func (c *Config) validateShared() []string {
	var errs []string

	if c.DateMatch != "calendar" && c.DateMatch != "display" {
		errs = append(errs, fmt.Sprintf("invalid date match '%s': must be 'calendar' or 'display'", c.DateMatch))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}
	return errs
}

// ServiceKey returns the raw service account key, reading the key file
// when no inline key is set.
func (c *Config) ServiceKey() (string, error) {
	if c.GoogleServiceKey != "" {
		return c.GoogleServiceKey, nil
	}
	if c.GoogleServiceKeyFile == "" {
		return "", fmt.Errorf("no Google service key configured")
	}
	b, err := os.ReadFile(c.GoogleServiceKeyFile)
	if err != nil {
		return "", fmt.Errorf("read service key file: %w", err)
	}
	return string(b), nil
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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
