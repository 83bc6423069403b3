// Package ctxutil carries per-dispatch identifiers through context.Context.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	userIDKey    contextKey = "ctxutil.userID"
	channelIDKey contextKey = "ctxutil.channelID"
	threadTSKey  contextKey = "ctxutil.threadTS"
	requestIDKey contextKey = "ctxutil.requestID"
	platformKey  contextKey = "ctxutil.platform"
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func getString(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the acting user's ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withString(ctx, userIDKey, userID)
}

// GetUserID returns the acting user's ID or "".
func GetUserID(ctx context.Context) string {
	return getString(ctx, userIDKey)
}

// WithChannelID stores the channel (or LINE chat) the event arrived on.
func WithChannelID(ctx context.Context, channelID string) context.Context {
	return withString(ctx, channelIDKey, channelID)
}

// GetChannelID returns the channel ID or "".
func GetChannelID(ctx context.Context) string {
	return getString(ctx, channelIDKey)
}

// WithThreadTS stores the thread timestamp replies should go to.
func WithThreadTS(ctx context.Context, threadTS string) context.Context {
	return withString(ctx, threadTSKey, threadTS)
}

// GetThreadTS returns the thread timestamp or "".
func GetThreadTS(ctx context.Context) string {
	return getString(ctx, threadTSKey)
}

// WithPlatform stores the transport name ("slack", "line").
func WithPlatform(ctx context.Context, platform string) context.Context {
	return withString(ctx, platformKey, platform)
}

// GetPlatform returns the transport name or "".
func GetPlatform(ctx context.Context) string {
	return getString(ctx, platformKey)
}

// WithRequestID stores the request ID used for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID and whether one was set.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok && requestID != ""
}

// MustGetUserID panics when no user ID is present. Only call it after the
// dispatcher has populated the context.
func MustGetUserID(ctx context.Context) string {
	userID := GetUserID(ctx)
	if userID == "" {
		panic("ctxutil: userID not found")
	}
	return userID
}

// PreserveTracing returns a fresh background context holding only the
// identifiers of ctx. Async webhook processing uses it to outlive the HTTP
// request without inheriting its cancellation.
func PreserveTracing(ctx context.Context) context.Context {
	out := context.Background()
	for _, key := range []contextKey{userIDKey, channelIDKey, threadTSKey, requestIDKey, platformKey} {
		if v := getString(ctx, key); v != "" {
			out = withString(out, key, v)
		}
	}
	return out
}
