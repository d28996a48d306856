package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/storage"
)

type Config struct {
	// HTTP Server
	Port string

	// Local store
	StoreBackend string
	StoreDir     string
	StoreName    string
	StoreVersion uint
	StoreQuotaMB int64

	// Remote CRUD API; empty disables it.
	RemoteAPIURL  string
	RemoteTimeout time.Duration

	// AMQP; empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reminder notifier
	ReminderLeadDays int
	ReminderInterval time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),
		StoreDir:     getEnv("STORE_DIR", "./data"),
		StoreName:    getEnv("STORE_NAME", "BudgetTrackerDB"),
		StoreVersion: uint(getEnvInt("STORE_VERSION", int(storage.LatestVersion))),
		StoreQuotaMB: int64(getEnvInt("STORE_QUOTA_MB", int(core.DefaultQuota>>20))),

		RemoteAPIURL:  getEnv("REMOTE_API_URL", ""),
		RemoteTimeout: getEnvDuration("REMOTE_TIMEOUT", 5*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reminders_due"),

		ReminderLeadDays: getEnvInt("REMINDER_LEAD_DAYS", 3),
		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// StoreOptions converts the store settings for storage.Open.
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{
		Dir:     c.StoreDir,
		Name:    c.StoreName,
		Version: c.StoreVersion,
		Quota:   c.StoreQuotaMB << 20,
	}
}

// SlogLevel returns the parsed LOG_LEVEL, info when unparseable.
func (c *Config) SlogLevel() slog.Level {
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreBackend {
	case "sqlite":
		if c.StoreDir == "" {
			errors = append(errors, "store directory cannot be empty when using sqlite backend")
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of [memory sqlite]", c.StoreBackend))
	}

	if c.StoreName == "" {
		errors = append(errors, "store name cannot be empty")
	}
	if c.StoreVersion > storage.LatestVersion {
		errors = append(errors, fmt.Sprintf("invalid store version %d: latest is %d", c.StoreVersion, storage.LatestVersion))
	}
	if c.StoreQuotaMB < 1 {
		errors = append(errors, fmt.Sprintf("invalid store quota %dMB: must be at least 1", c.StoreQuotaMB))
	}

	if c.RemoteAPIURL != "" {
		if u, err := url.Parse(c.RemoteAPIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid remote API URL '%s': %v", c.RemoteAPIURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid remote API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.RemoteTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid remote timeout %v: must be positive", c.RemoteTimeout))
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReminderLeadDays < 0 || c.ReminderLeadDays > 365 {
		errors = append(errors, fmt.Sprintf("invalid reminder lead days %d: must be between 0 and 365", c.ReminderLeadDays))
	}
	if c.ReminderInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at least 1 second", c.ReminderInterval))
	} else if c.ReminderInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at most 24 hours", c.ReminderInterval))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
