package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log line: %s", buf.String())
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestNewWithWriter_Layout(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Warn("slow query")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "slow query", entry["message"])
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, entry, "msg")
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)

	log.Info("ignored")
	assert.Zero(t, buf.Len())
	assert.Equal(t, slog.LevelError, log.Level())
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("emoji").
		WithRequestID("req-1").
		WithError(errors.New("boom")).
		WithFields(map[string]any{"command": "new emoji"}).
		Info("handler failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "emoji", entry["module"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "new emoji", entry["command"])
}

func TestLogger_Infof(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("info", &buf).Infof("registered %d commands", 12)
	assert.Equal(t, "registered 12 commands", decodeLine(t, &buf)["message"])
}

func TestLogger_ShutdownWithoutRemote(t *testing.T) {
	log := NewWithWriter("info", &bytes.Buffer{})
	assert.NoError(t, log.Shutdown(context.Background()))
}

type recordingHandler struct {
	mu      sync.Mutex
	level   slog.Level
	records []string
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Message)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.records...)
}

func TestMultiHandler(t *testing.T) {
	all := &recordingHandler{level: slog.LevelDebug}
	errorsOnly := &recordingHandler{level: slog.LevelError}
	log := slog.New(NewMultiHandler(all, nil, errorsOnly))

	log.Info("one")
	log.Error("two")

	assert.Equal(t, []string{"one", "two"}, all.messages())
	assert.Equal(t, []string{"two"}, errorsOnly.messages())
}

func TestAsyncHandler_FlushOnShutdown(t *testing.T) {
	sink := &recordingHandler{level: slog.LevelDebug}
	async := NewAsyncHandler(sink, AsyncOptions{BufferSize: 16, FlushTimeout: time.Second})
	log := slog.New(async)

	for range 5 {
		log.Info("queued")
	}
	require.NoError(t, async.Shutdown(context.Background()))
	assert.Len(t, sink.messages(), 5)

	log.Info("after shutdown")
	assert.Len(t, sink.messages(), 5)
	assert.NoError(t, async.Shutdown(context.Background()), "second shutdown is a no-op")
}
