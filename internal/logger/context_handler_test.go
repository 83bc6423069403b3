package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/garyellow/chatbot-go/internal/ctxutil"
	"github.com/stretchr/testify/assert"
)

func TestContextHandler_Handle(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(context.Context) context.Context
		want   map[string]string
		absent []string
	}{
		{
			name: "all identifiers",
			setup: func(ctx context.Context) context.Context {
				ctx = ctxutil.WithUserID(ctx, "U12345")
				ctx = ctxutil.WithChannelID(ctx, "C67890")
				ctx = ctxutil.WithThreadTS(ctx, "1700000000.1")
				ctx = ctxutil.WithPlatform(ctx, "slack")
				return ctxutil.WithRequestID(ctx, "req-abc")
			},
			want: map[string]string{
				"user_id":    "U12345",
				"channel_id": "C67890",
				"thread_ts":  "1700000000.1",
				"platform":   "slack",
				"request_id": "req-abc",
			},
		},
		{
			name:   "user only",
			setup:  func(ctx context.Context) context.Context { return ctxutil.WithUserID(ctx, "U9") },
			want:   map[string]string{"user_id": "U9"},
			absent: []string{"channel_id", "request_id"},
		},
		{
			name:   "empty context",
			setup:  func(ctx context.Context) context.Context { return ctx },
			absent: []string{"user_id", "channel_id", "thread_ts", "request_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter("info", &buf)

			log.InfoContext(tt.setup(context.Background()), "dispatch")

			entry := decodeLine(t, &buf)
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k], k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, entry, k)
			}
		})
	}
}
