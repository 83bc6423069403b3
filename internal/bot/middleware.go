package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/metrics"
)

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain wraps h so that mws[0] is the outermost layer.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// LoggingMiddleware logs handler execution with timing.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (Envelope, error) {
			start := time.Now()
			log.DebugContext(ctx, "Handler started",
				"kind", req.Kind,
				"command", req.Command)

			env, err := next(ctx, req)

			log.DebugContext(ctx, "Handler completed",
				"kind", req.Kind,
				"command", req.Command,
				"envelope", env.Kind.String(),
				"duration_ms", time.Since(start).Milliseconds(),
				"failed", err != nil)
			return env, err
		}
	}
}

// MetricsMiddleware records handler execution time per command.
func MetricsMiddleware(m *metrics.Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (Envelope, error) {
			start := time.Now()
			env, err := next(ctx, req)
			m.RecordHandler(req.Command, time.Since(start).Seconds())
			return env, err
		}
	}
}

// RecoveryMiddleware turns a handler panic into a *errors.HandlerError
// carrying the panic value and stack.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (env Envelope, err error) {
			defer func() {
				if r := recover(); r != nil {
					env = None()
					err = &domerrors.HandlerError{
						Command: req.Command,
						Cause:   fmt.Errorf("panic: %v", r),
						Panic:   r,
						Stack:   debug.Stack(),
					}
				}
			}()
			return next(ctx, req)
		}
	}
}
