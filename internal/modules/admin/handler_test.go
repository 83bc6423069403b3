package admin

import (
	"context"
	"io"
	"testing"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/garyellow/chatbot-go/internal/config"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminDefs = []config.CommandDefinition{
	{Pattern: `^approve\b`, Regex: true, Handler: CmdApprove, Privileged: true},
	{Pattern: `^set\s`, Regex: true, Handler: CmdSet, Privileged: true},
	{Pattern: "settings", Handler: CmdSettings, Privileged: true},
}

var (
	root  = bot.Caller{UserID: "UROOT", ChannelID: "C1"}
	alice = bot.Caller{UserID: "UALICE", ChannelID: "C1"}
)

func setup(t *testing.T) (*bot.Dispatcher, *storage.DB) {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logger.NewWithWriter("error", io.Discard)
	tables, err := bot.Build(adminDefs, NewHandler(db, log))
	require.NoError(t, err)
	return bot.NewDispatcher(bot.DispatcherConfig{
		Registry:   tables.Registry,
		Router:     tables.Router,
		Authorizer: storage.NewAuthorizer(db, []string{"UROOT"}),
		Logger:     log,
	}), db
}

func TestApproveGrantsAccess(t *testing.T) {
	t.Parallel()
	d, _ := setup(t)
	ctx := context.Background()

	env := d.DispatchText(ctx, "set greeting hi", alice)
	assert.Equal(t, bot.StateRejected, env.State)
	assert.Equal(t, bot.MsgNotAuthorized, env.Text)

	env = d.DispatchText(ctx, "approve <@UALICE>", root)
	require.Equal(t, bot.StateCompleted, env.State)
	assert.Equal(t, "Approved <@UALICE>.", env.Text)

	env = d.DispatchText(ctx, "set Greeting hello there", alice)
	require.Equal(t, bot.StateCompleted, env.State)
	assert.Equal(t, "`greeting` is now `hello there`.", env.Text)
}

func TestApproveAction(t *testing.T) {
	t.Parallel()
	d, db := setup(t)
	ctx := context.Background()

	env := d.DispatchAction(ctx, bot.Action{ID: ActionApproveUser, SelectedUsers: []string{"UBOB"}}, alice)
	assert.Equal(t, bot.StateRejected, env.State)
	assert.Zero(t, db.Transactions())

	env = d.DispatchAction(ctx, bot.Action{ID: ActionApproveUser, SelectedUsers: []string{"UBOB", "UCAROL"}}, root)
	assert.Equal(t, "Approved <@UBOB>, <@UCAROL>.", env.Text)

	ok, err := storage.NewAuthorizer(db, nil).IsApproved(ctx, "UCAROL")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSettingsListsValuesAndPicker(t *testing.T) {
	t.Parallel()
	d, _ := setup(t)
	ctx := context.Background()

	env := d.DispatchText(ctx, "settings", root)
	assert.Contains(t, env.PlainText(), "Nothing set yet.")

	d.DispatchText(ctx, "set greeting hi", root)
	env = d.DispatchText(ctx, "settings", root)
	require.Equal(t, bot.EnvelopeBlocks, env.Kind)
	assert.Contains(t, env.PlainText(), "`greeting` = `hi` (by <@UROOT>)")
	assert.Len(t, env.Blocks, 3)
}

func TestUsage(t *testing.T) {
	t.Parallel()
	d, _ := setup(t)
	ctx := context.Background()
	assert.Contains(t, d.DispatchText(ctx, "approve nobody", root).Text, "Usage")
	assert.Contains(t, d.DispatchText(ctx, "set lonely", root).Text, "Usage")
}

func TestUserIDs(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"U1A", "W2B"}, UserIDs("approve <@U1A> <@W2B|bob>", "<@U1A> <@W2B|bob>"))
	assert.Equal(t, []string{"U123", "W456"}, UserIDs("approve U123 bob W456", "U123 bob W456"))
	assert.Nil(t, UserIDs("approve", ""))
}
