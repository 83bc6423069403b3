package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/garyellow/chatbot-go/internal/config"
	"github.com/garyellow/chatbot-go/internal/ctxutil"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/metrics"
	"github.com/garyellow/chatbot-go/internal/sentry"
	"github.com/google/uuid"
)

// User-visible texts produced by the dispatcher itself.
const (
	MsgNotAuthorized  = "Sorry, you are not allowed to do that."
	MsgGenericFailure = "Something went wrong. Please try again later."
	MsgRestartFlow    = "That form has expired. Please start it again."
	MsgSlowDown       = "Slow down! Try again in a moment."
)

// Authorizer decides whether a user may run privileged handlers.
type Authorizer interface {
	IsApproved(ctx context.Context, userID string) (bool, error)
}

// Deduper claims idempotency keys. TryClaim must be atomic.
type Deduper interface {
	TryClaim(ctx context.Context, key string) (bool, error)
}

// Throttler limits how often one user can trigger handlers.
type Throttler interface {
	Allow(key string) bool
}

// DispatcherConfig wires a Dispatcher. Registry, Router and Sessions are
// required; everything else is optional.
type DispatcherConfig struct {
	Registry   *Registry
	Router     *Router
	Events     *EventTable
	Sessions   *SessionStore
	Authorizer Authorizer
	Deduper    Deduper
	Limiter    Throttler
	Logger     *logger.Logger
	Metrics    *metrics.Metrics

	// Middlewares wrap every handler, first one outermost. Panic recovery
	// is always applied outside of them.
	Middlewares []Middleware

	Timeout   time.Duration
	BotUserID string
	MaxLength int
	Now       func() time.Time
}

// Dispatcher turns inbound text, actions and events into envelopes. It is
// safe for concurrent use and never lets a handler failure escape.
type Dispatcher struct {
	registry    *Registry
	router      *Router
	events      *EventTable
	sessions    *SessionStore
	authorizer  Authorizer
	deduper     Deduper
	limiter     Throttler
	logger      *logger.Logger
	metrics     *metrics.Metrics
	middlewares []Middleware
	timeout     time.Duration
	botUserID   atomic.Pointer[string]
	maxLength   int
	now         func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		registry:    cfg.Registry,
		router:      cfg.Router,
		events:      cfg.Events,
		sessions:    cfg.Sessions,
		authorizer:  cfg.Authorizer,
		deduper:     cfg.Deduper,
		limiter:     cfg.Limiter,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		middlewares: cfg.Middlewares,
		timeout:     cfg.Timeout,
		maxLength:   cfg.MaxLength,
		now:         cfg.Now,
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.router == nil {
		d.router = NewRouter()
	}
	if d.events == nil {
		d.events = NewEventTable()
	}
	if d.sessions == nil {
		d.sessions = NewSessionStore(0, cfg.Metrics)
	}
	if d.logger == nil {
		d.logger = logger.New("info")
	}
	if d.timeout <= 0 {
		d.timeout = config.DispatchBudget
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.SetBotUserID(cfg.BotUserID)
	return d
}

// Sessions returns the flow state store.
func (d *Dispatcher) Sessions() *SessionStore {
	return d.sessions
}

// SetBotUserID sets the ID whose mentions are stripped from inbound text.
// It may be called while dispatches are running.
func (d *Dispatcher) SetBotUserID(id string) {
	d.botUserID.Store(&id)
}

// BotUserID returns the ID set by SetBotUserID.
func (d *Dispatcher) BotUserID() string {
	if id := d.botUserID.Load(); id != nil {
		return *id
	}
	return ""
}

// DispatchText handles a free-text message.
func (d *Dispatcher) DispatchText(ctx context.Context, text string, caller Caller) Envelope {
	start := time.Now()

	text = Sanitize(text, d.BotUserID(), d.maxLength)
	m, ok := d.registry.Match(text)
	if !ok {
		return d.finish(ctx, KindText, "", start, None().withState(StateIgnored))
	}

	entry := m.Entry
	if env, rejected := d.admit(ctx, caller, entry.Name, entry.Privileged); rejected {
		return d.finish(ctx, KindText, entry.Name, start, env)
	}

	req := &Request{
		Kind:        KindText,
		Command:     entry.Name,
		Caller:      caller,
		Text:        text,
		MatchedText: m.Matched(),
		Args:        Extract(m),
	}
	return d.finish(ctx, KindText, entry.Name, start, d.execute(ctx, req, entry.Handler))
}

// DispatchAction handles a UI interaction.
func (d *Dispatcher) DispatchAction(ctx context.Context, action Action, caller Caller) Envelope {
	start := time.Now()

	route, ok := d.router.Resolve(action.ID)
	if !ok {
		d.logger.DebugContext(ctx, "Unrouted action", "action_id", action.ID)
		return d.finish(ctx, KindAction, "", start, None().withState(StateIgnored))
	}

	if env, rejected := d.admit(ctx, caller, route.Name, route.Privileged); rejected {
		return d.finish(ctx, KindAction, route.Name, start, env)
	}

	req := &Request{
		Kind:    KindAction,
		Command: route.Name,
		Caller:  caller,
		Action:  action,
	}
	return d.finish(ctx, KindAction, route.Name, start, d.execute(ctx, req, route.Handler))
}

// DispatchEvent handles a platform event. Each event runs at most once per
// idempotency key.
func (d *Dispatcher) DispatchEvent(ctx context.Context, ev Event, caller Caller) Envelope {
	start := time.Now()

	route, ok := d.events.Lookup(ev.Type)
	if !ok {
		return d.finish(ctx, KindEvent, "", start, None().withState(StateIgnored))
	}

	if d.deduper != nil {
		key := IdempotencyKey(caller.ChannelID, caller.UserID, ev.Type, ev.MessageTS, d.now())
		claimed, err := d.deduper.TryClaim(ctx, key)
		switch {
		case err != nil:
			// Fail closed.
			d.logger.WithError(err).WarnContext(ctx, "Idempotency check failed, dropping event",
				"event_type", ev.Type,
				"key", key)
			d.metrics.RecordDedup("error")
			return d.finish(ctx, KindEvent, route.Name, start, None().withState(StateIgnored))
		case !claimed:
			d.logger.DebugContext(ctx, "Duplicate event suppressed", "key", key)
			d.metrics.RecordDedup("duplicate")
			return d.finish(ctx, KindEvent, route.Name, start, None().withState(StateIgnored))
		}
		d.metrics.RecordDedup("claimed")
	}

	req := &Request{
		Kind:    KindEvent,
		Command: route.Name,
		Caller:  caller,
		Event:   ev,
	}
	return d.finish(ctx, KindEvent, route.Name, start, d.execute(ctx, req, route.Handler))
}

// IdempotencyKey builds channel|user|event_type|message_ts|hour_bucket with
// the hour bucket taken in UTC.
func IdempotencyKey(channel, user, eventType, messageTS string, now time.Time) string {
	return strings.Join([]string{channel, user, eventType, messageTS, now.UTC().Format("2006010215")}, "|")
}

// admit applies throttling and the privilege check. It returns the
// rejection envelope and true when the handler must not run.
func (d *Dispatcher) admit(ctx context.Context, caller Caller, command string, privileged bool) (Envelope, bool) {
	if d.limiter != nil && caller.UserID != "" && !d.limiter.Allow(caller.UserID) {
		d.logger.WarnContext(ctx, "User rate limit exceeded",
			"command", command,
			"user_id", caller.UserID)
		return Text(MsgSlowDown).withState(StateRejected), true
	}
	if !privileged {
		return Envelope{}, false
	}

	approved := false
	if d.authorizer != nil && caller.UserID != "" {
		ok, err := d.authorizer.IsApproved(ctx, caller.UserID)
		if err != nil {
			d.logger.WithError(err).ErrorContext(ctx, "Authorization check failed",
				"command", command,
				"user_id", caller.UserID)
		}
		approved = ok && err == nil
	}
	if !approved {
		d.logger.InfoContext(ctx, "Privileged command rejected",
			"command", command,
			"user_id", caller.UserID)
		return Text(MsgNotAuthorized).withState(StateRejected), true
	}
	return Envelope{}, false
}

type handlerResult struct {
	env Envelope
	err error
}

// execute runs h inside the failure boundary and time budget.
func (d *Dispatcher) execute(ctx context.Context, req *Request, h Handler) Envelope {
	req.Flows = d.sessions.For(req.Caller.UserID)

	ctx = ctxutil.WithUserID(ctx, req.Caller.UserID)
	ctx = ctxutil.WithChannelID(ctx, req.Caller.ChannelID)
	ctx = ctxutil.WithThreadTS(ctx, req.Caller.ThreadTS)
	ctx = ctxutil.WithPlatform(ctx, req.Caller.Platform)
	if _, ok := ctxutil.GetRequestID(ctx); !ok {
		ctx = ctxutil.WithRequestID(ctx, uuid.NewString())
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	wrapped := Chain(h, append([]Middleware{RecoveryMiddleware()}, d.middlewares...)...)

	// Buffered so a handler that outlives the budget can still finish.
	done := make(chan handlerResult, 1)
	go func() {
		env, err := wrapped(ctx, req)
		done <- handlerResult{env: env, err: err}
	}()

	var res handlerResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = &domerrors.HandlerError{
			Command: req.Command,
			Cause:   fmt.Errorf("%w after %s: %w", domerrors.ErrTimeout, d.timeout, ctx.Err()),
		}
	}

	if res.err == nil {
		return res.env.withState(StateCompleted)
	}
	if errors.Is(res.err, domerrors.ErrMissingFlowState) {
		d.logger.InfoContext(ctx, "Flow state missing, asking user to restart",
			"command", req.Command)
		return Text(MsgRestartFlow).withState(StateCompleted)
	}
	return d.fail(ctx, req, res.err)
}

// fail logs and reports a handler failure and returns the generic envelope,
// or the user message attached to err if there is one.
func (d *Dispatcher) fail(ctx context.Context, req *Request, err error) Envelope {
	class := domerrors.Classify(err)
	fields := []any{
		"kind", req.Kind,
		"command", req.Command,
		"user_id", req.Caller.UserID,
		"channel_id", req.Caller.ChannelID,
		"class", class,
	}
	if req.Kind == KindText {
		fields = append(fields, "target", req.Args.Target, "flags", req.Args.Flags)
	}
	if req.Kind == KindAction {
		fields = append(fields, "action_id", req.Action.ID, "value", req.Action.Value)
	}
	var he *domerrors.HandlerError
	if errors.As(err, &he) && he.Stack != nil {
		fields = append(fields, "stack", string(he.Stack))
	}
	d.logger.WithError(err).ErrorContext(ctx, "Handler failed", fields...)

	d.metrics.RecordHandlerFailure(req.Command, class)
	sentry.CaptureHandlerFailure(ctx, err,
		map[string]string{
			"kind":    req.Kind,
			"command": req.Command,
			"class":   class,
		},
		map[string]any{
			"user_id":    req.Caller.UserID,
			"channel_id": req.Caller.ChannelID,
			"target":     req.Args.Target,
			"action_id":  req.Action.ID,
		})

	msg := domerrors.GetUserMessage(err)
	if msg == "" {
		msg = MsgGenericFailure
	}
	return Text(msg).withState(StateFailed)
}

// finish records the outcome of a dispatch.
func (d *Dispatcher) finish(ctx context.Context, kind, command string, start time.Time, env Envelope) Envelope {
	elapsed := time.Since(start)
	d.metrics.RecordDispatch(kind, string(env.State), elapsed.Seconds())
	if env.State != StateIgnored {
		d.logger.InfoContext(ctx, "Dispatch finished",
			"kind", kind,
			"command", command,
			"state", string(env.State),
			"envelope", env.Kind.String(),
			"duration_ms", elapsed.Milliseconds())
	}
	return env
}
