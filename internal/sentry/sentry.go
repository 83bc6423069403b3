// Package sentry initializes error reporting (Sentry protocol, Better Stack
// compatible) and reports dispatch failures with their context.
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds error reporting settings.
type Config struct {
	// Token is the ingest token. Empty disables reporting.
	Token string

	// Host is the ingest host, e.g. "errors.betterstack.com".
	Host string

	Environment string
	Release     string

	// SampleRate is the fraction of errors sent (0 means 1.0).
	SampleRate float64

	Debug bool
}

// DSN builds the Sentry DSN for cfg. The project ID is required by the SDK
// but ignored by Better Stack.
func (cfg Config) DSN() string {
	return fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host)
}

// Initialize sets up the global Sentry client. With an empty token it does
// nothing and returns nil.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return fmt.Errorf("sentry host is required when token is provided")
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN(),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether a client is bound to the current hub.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureException reports err on the hub bound to ctx, or the global hub.
func CaptureException(ctx context.Context, err error) {
	hubFrom(ctx).CaptureException(err)
}

// CaptureHandlerFailure reports a failed dispatch with its tags (command,
// platform, failure class) and extra context (user, channel, arguments)
// on an isolated scope.
func CaptureHandlerFailure(ctx context.Context, err error, tags map[string]string, extra map[string]any) {
	if err == nil {
		return
	}
	hub := hubFrom(ctx)
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if len(extra) > 0 {
			scope.SetContext("dispatch", sentry.Context(extra))
		}
		hub.CaptureException(err)
	})
}
