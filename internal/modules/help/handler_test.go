package help

import (
	"context"
	"testing"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *bot.Request) (bot.Envelope, error) { return bot.None(), nil }

func TestHelp(t *testing.T) {
	t.Parallel()
	h := NewHandler()
	req := &bot.Request{}

	env, err := h.handleList(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Help is not available yet.", env.Text)

	reg := bot.NewRegistry()
	require.NoError(t, reg.Register(bot.Entry{Pattern: "insult", Name: "fun.insult", Handler: noop, Help: "insult <target>"}))
	require.NoError(t, reg.Register(bot.Entry{Pattern: "settings", Name: "admin.settings", Handler: noop, Help: "settings - list settings", Privileged: true}))
	require.NoError(t, reg.Register(bot.Entry{Pattern: "scores", Name: "game.scores", Handler: noop}))
	h.Attach(reg)

	env, err = h.handleList(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "*Commands*\n• insult <target>\n• settings - list settings (admin)\n• scores", env.Text)

	req.Args.Target = "insult"
	env, err = h.handleList(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "*Commands*\n• insult <target>", env.Text)

	req.Args.Target = "dance"
	env, err = h.handleList(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `No commands match "dance".`, env.Text)
}
