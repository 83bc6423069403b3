// Package config provides centralized timeout constants for the application.
//
// Slack expects an HTTP acknowledgement within 3 seconds and retries
// otherwise, so webhook handlers ack first and dispatch asynchronously.
// The dispatch budget bounds how long one handler may hold a goroutine.
package config

import "time"

// Dispatch
const (
	// DispatchBudget is the default per-dispatch time budget. A handler that
	// runs longer is reported as failed and its reply discarded.
	DispatchBudget = 15 * time.Second

	// ReplyDelivery bounds posting one envelope back to the platform.
	ReplyDelivery = 10 * time.Second
)

// HTTP server
const (
	WebhookHTTPRead  = 10 * time.Second
	WebhookHTTPWrite = 20 * time.Second
	WebhookHTTPIdle  = 120 * time.Second

	// ReadinessCheck bounds the database ping in /readyz.
	ReadinessCheck = 3 * time.Second

	// GracefulShutdown is the default time allowed for in-flight events.
	GracefulShutdown = 30 * time.Second
)

// Lookup
const (
	// LookupRequest is the timeout for a single outbound page fetch.
	LookupRequest = 8 * time.Second

	// LookupRetryInitial is the first backoff delay between fetch attempts.
	LookupRetryInitial = 500 * time.Millisecond
)

// Database
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime recycles pooled connections.
	DatabaseConnMaxLifetime = time.Hour

	// SlowQueryThreshold marks units of work worth a warning log.
	SlowQueryThreshold = 500 * time.Millisecond
)

// Background jobs
const (
	// SessionSweepInterval is how often expired flow state is dropped.
	SessionSweepInterval = time.Minute

	// DedupSweepInterval is how often the in-memory idempotency set is pruned.
	DedupSweepInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often idle per-user limiters are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute
)
