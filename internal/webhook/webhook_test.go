package webhook

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type dispatched struct {
	kind   string
	text   string
	action bot.Action
	event  bot.Event
	caller bot.Caller
}

// fakeDispatcher records calls and answers with a fixed envelope.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatched
	reply bot.Envelope
}

func (f *fakeDispatcher) record(d dispatched) bot.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, d)
	return f.reply
}

func (f *fakeDispatcher) DispatchText(_ context.Context, text string, caller bot.Caller) bot.Envelope {
	return f.record(dispatched{kind: bot.KindText, text: text, caller: caller})
}

func (f *fakeDispatcher) DispatchAction(_ context.Context, a bot.Action, caller bot.Caller) bot.Envelope {
	return f.record(dispatched{kind: bot.KindAction, action: a, caller: caller})
}

func (f *fakeDispatcher) DispatchEvent(_ context.Context, ev bot.Event, caller bot.Caller) bot.Envelope {
	return f.record(dispatched{kind: bot.KindEvent, event: ev, caller: caller})
}

func (f *fakeDispatcher) snapshot() []dispatched {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatched(nil), f.calls...)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// drain waits for background processing started by h.
func drain(t *testing.T, h shutdowner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
}
