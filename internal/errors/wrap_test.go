package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrapper(t *testing.T) {
	wrapper := NewWrapper("emoji", "save_emoji")

	t.Run("Wrap returns nil for nil error", func(t *testing.T) {
		if result := wrapper.Wrap(nil, "could not save emoji"); result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})

	t.Run("Wrap creates WrappedError", func(t *testing.T) {
		base := errors.New("UNIQUE constraint failed")
		wrapped := wrapper.Wrap(base, "could not save emoji")

		var we *WrappedError
		if !errors.As(wrapped, &we) {
			t.Fatal("expected WrappedError type")
		}
		if we.Module != "emoji" || we.Operation != "save_emoji" {
			t.Errorf("unexpected context %s:%s", we.Module, we.Operation)
		}
		if !errors.Is(wrapped, base) {
			t.Error("wrapped error does not unwrap to cause")
		}
		want := "[emoji:save_emoji] could not save emoji: UNIQUE constraint failed"
		if wrapped.Error() != want {
			t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
		}
	})

	t.Run("Wrapf formats the user message", func(t *testing.T) {
		err := wrapper.Wrapf(ErrNotFound, "no emoji called %q", "party")
		if got := GetUserMessage(err); got != `no emoji called "party"` {
			t.Errorf("GetUserMessage = %q", got)
		}
	})
}

func TestGetUserMessage(t *testing.T) {
	if got := GetUserMessage(nil); got != "" {
		t.Errorf("nil error message = %q", got)
	}
	if got := GetUserMessage(errors.New("plain")); got != "" {
		t.Errorf("plain error message = %q", got)
	}
	inner := NewWrapper("quotes", "add").Wrap(errors.New("x"), "could not add quote")
	if got := GetUserMessage(fmt.Errorf("outer: %w", inner)); got != "could not add quote" {
		t.Errorf("message through fmt wrap = %q", got)
	}
}
