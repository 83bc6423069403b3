package sentry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_EmptyToken(t *testing.T) {
	if err := Initialize(Config{Token: ""}); err != nil {
		t.Errorf("Expected nil error for empty token, got %v", err)
	}
}

func TestInitialize_MissingHost(t *testing.T) {
	if err := Initialize(Config{Token: "test-token"}); err == nil {
		t.Error("Expected error when host is missing")
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Token: "abc", Host: "errors.example.com"}
	assert.Equal(t, "https://abc@errors.example.com/1", cfg.DSN())
}

func TestFlush(t *testing.T) {
	if !Flush(100 * time.Millisecond) {
		t.Error("Expected Flush to return true when no events pending")
	}
}

// capturingHub returns a context bound to a hub whose events are recorded
// by BeforeSend and never leave the process.
func capturingHub(t *testing.T) (context.Context, func() []*sentry.Event) {
	t.Helper()
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://key@sentry.invalid/1",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())
	ctx := sentry.SetHubOnContext(context.Background(), hub)
	return ctx, func() []*sentry.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]*sentry.Event(nil), events...)
	}
}

func TestCaptureHandlerFailure(t *testing.T) {
	ctx, events := capturingHub(t)

	CaptureHandlerFailure(ctx, errors.New("boom"),
		map[string]string{"command": "quote", "class": "panic"},
		map[string]any{"user": "U1", "channel": "C1"})
	CaptureHandlerFailure(ctx, nil, nil, nil)

	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, "quote", got[0].Tags["command"])
	assert.Equal(t, "panic", got[0].Tags["class"])
	assert.Equal(t, "U1", got[0].Contexts["dispatch"]["user"])
}

func TestCaptureException_UsesContextHub(t *testing.T) {
	ctx, events := capturingHub(t)
	CaptureException(ctx, errors.New("store down"))
	assert.Len(t, events(), 1)
}
