package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/chatbot-go/internal/ctxutil"
)

// ContextHandler adds the dispatch identifiers stored by ctxutil to every
// record logged through a *Context method.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler wraps handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds user_id, channel_id, thread_ts, platform and request_id when
// present.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := ctxutil.GetUserID(ctx); v != "" {
		r.AddAttrs(slog.String("user_id", v))
	}
	if v := ctxutil.GetChannelID(ctx); v != "" {
		r.AddAttrs(slog.String("channel_id", v))
	}
	if v := ctxutil.GetThreadTS(ctx); v != "" {
		r.AddAttrs(slog.String("thread_ts", v))
	}
	if v := ctxutil.GetPlatform(ctx); v != "" {
		r.AddAttrs(slog.String("platform", v))
	}
	if v, ok := ctxutil.GetRequestID(ctx); ok {
		r.AddAttrs(slog.String("request_id", v))
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a ContextHandler over handler.WithAttrs(attrs).
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a ContextHandler over handler.WithGroup(name).
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
