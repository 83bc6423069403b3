package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestIdentifiers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := GetUserID(ctx); got != "" {
		t.Errorf("GetUserID on empty context = %q", got)
	}
	if _, ok := GetRequestID(ctx); ok {
		t.Error("GetRequestID reported a value on empty context")
	}

	ctx = WithUserID(ctx, "U123")
	ctx = WithChannelID(ctx, "C456")
	ctx = WithThreadTS(ctx, "1700000000.000100")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithPlatform(ctx, "slack")

	if got := GetUserID(ctx); got != "U123" {
		t.Errorf("GetUserID = %q", got)
	}
	if got := GetChannelID(ctx); got != "C456" {
		t.Errorf("GetChannelID = %q", got)
	}
	if got := GetThreadTS(ctx); got != "1700000000.000100" {
		t.Errorf("GetThreadTS = %q", got)
	}
	if got, ok := GetRequestID(ctx); !ok || got != "req-1" {
		t.Errorf("GetRequestID = %q, %v", got, ok)
	}
	if got := GetPlatform(ctx); got != "slack" {
		t.Errorf("GetPlatform = %q", got)
	}
}

func TestMustGetUserIDPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustGetUserID(context.Background())
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithUserID(parent, "U1")
	parent = WithRequestID(parent, "r1")
	cancel()

	detached := PreserveTracing(parent)
	if detached.Err() != nil {
		t.Fatalf("detached context inherited cancellation: %v", detached.Err())
	}
	if GetUserID(detached) != "U1" {
		t.Error("user ID not preserved")
	}
	if id, _ := GetRequestID(detached); id != "r1" {
		t.Error("request ID not preserved")
	}
	if GetChannelID(detached) != "" {
		t.Error("unset channel ID should stay empty")
	}
}
