// Package config loads application settings from the environment and the
// static command definition source.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Dedup backends.
const (
	DedupMemory = "memory"
	DedupBadger = "badger"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data
	DataDir      string
	DedupBackend string        // "memory" or "badger"
	DedupWindow  time.Duration // how long an idempotency key is remembered

	// Dispatch
	DispatchTimeout  time.Duration
	SessionTTL       time.Duration // 0 keeps flow state until the process exits
	AdminUserIDs     []string
	CommandsFile     string // empty uses the embedded definitions
	MaxMessageLength int

	// Rate limits
	UserRateBurst  int
	UserRatePerSec float64
	OutboundRPS    float64

	// Slack
	SlackBotToken      string
	SlackSigningSecret string

	// LINE
	LineChannelToken  string
	LineChannelSecret string

	// Lookup
	LookupBaseURL    string
	LookupTimeout    time.Duration
	LookupMaxRetries int

	// Observability
	MetricsUsername     string
	MetricsPassword     string // empty disables /metrics auth
	BetterStackToken    string
	BetterStackEndpoint string
	SentryToken         string
	SentryHost          string
	SentryEnvironment   string
}

// Load reads configuration from the environment, after loading a .env file
// when one exists, and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		DataDir:      getEnv(EnvDataDir, defaultDataDir()),
		DedupBackend: strings.ToLower(getEnv(EnvDedupBackend, DedupMemory)),
		DedupWindow:  getDurationEnv(EnvDedupWindow, 2*time.Hour),

		DispatchTimeout:  getDurationEnv(EnvDispatchTimeout, DispatchBudget),
		SessionTTL:       getDurationEnv(EnvSessionTTL, 30*time.Minute),
		AdminUserIDs:     getListEnv(EnvAdminUserIDs),
		CommandsFile:     getEnv(EnvCommandsFile, ""),
		MaxMessageLength: getIntEnv(EnvMaxMessageLength, 4000),

		UserRateBurst:  getIntEnv(EnvUserRateBurst, 10),
		UserRatePerSec: getFloatEnv(EnvUserRatePerSec, 0.5),
		OutboundRPS:    getFloatEnv(EnvOutboundRPS, 1),

		SlackBotToken:      getEnv(EnvSlackBotToken, ""),
		SlackSigningSecret: getEnv(EnvSlackSigningSecret, ""),

		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		LookupBaseURL:    getEnv(EnvLookupBaseURL, "https://en.wikipedia.org"),
		LookupTimeout:    getDurationEnv(EnvLookupTimeout, LookupRequest),
		LookupMaxRetries: getIntEnv(EnvLookupMaxRetries, 2),

		MetricsUsername:     getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:     getEnv(EnvMetricsPassword, ""),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),
		SentryToken:         getEnv(EnvSentryToken, ""),
		SentryHost:          getEnv(EnvSentryHost, ""),
		SentryEnvironment:   getEnv(EnvSentryEnvironment, "production"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks required values and ranges, reporting every problem.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if !c.SlackEnabled() && !c.LineEnabled() {
		errs = append(errs, errors.New("at least one transport must be configured (Slack token and signing secret, or LINE token and secret)"))
	}
	if (c.SlackBotToken == "") != (c.SlackSigningSecret == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvSlackBotToken, EnvSlackSigningSecret))
	}
	if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelAccessToken, EnvLineChannelSecret))
	}
	if c.DedupBackend != DedupMemory && c.DedupBackend != DedupBadger {
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", EnvDedupBackend, DedupMemory, DedupBadger, c.DedupBackend))
	}
	if c.DedupWindow < time.Hour {
		errs = append(errs, fmt.Errorf("%s must be at least 1h to cover an hour bucket, got %v", EnvDedupWindow, c.DedupWindow))
	}
	if c.DispatchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvDispatchTimeout, c.DispatchTimeout))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvSessionTTL, c.SessionTTL))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxMessageLength, c.MaxMessageLength))
	}
	if c.UserRateBurst <= 0 || c.UserRatePerSec <= 0 {
		errs = append(errs, errors.New("user rate limit burst and refill must be positive"))
	}
	if c.OutboundRPS <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvOutboundRPS, c.OutboundRPS))
	}
	if u, err := url.Parse(c.LookupBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", EnvLookupBaseURL, c.LookupBaseURL))
	}
	if c.LookupTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvLookupTimeout, c.LookupTimeout))
	}
	if c.LookupMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvLookupMaxRetries, c.LookupMaxRetries))
	}
	if c.SentryToken != "" && c.SentryHost == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvSentryHost, EnvSentryToken))
	}

	return errors.Join(errs...)
}

// SlackEnabled reports whether the Slack transport is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackSigningSecret != ""
}

// LineEnabled reports whether the LINE transport is configured.
func (c *Config) LineEnabled() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}

// SQLitePath returns the relational store file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "chatbot.db")
}

// BadgerPath returns the directory of the on-disk idempotency store.
func (c *Config) BadgerPath() string {
	return filepath.Join(c.DataDir, "dedup")
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
