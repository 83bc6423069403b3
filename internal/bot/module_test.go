package bot

import (
	"context"
	"testing"

	"github.com/garyellow/chatbot-go/internal/config"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModule struct {
	name     string
	commands map[string]Handler
	actions  []Route
	events   []EventRoute
}

func (m fakeModule) Name() string { return m.name }
func (m fakeModule) Commands() map[string]Handler { return m.commands }
func (m fakeModule) Actions() []Route { return m.actions }
func (m fakeModule) Events() []EventRoute { return m.events }

func TestBuild(t *testing.T) {
	t.Parallel()
	defs := []config.CommandDefinition{
		{Pattern: "insult", Handler: "fun.insult", Flags: []config.FlagDefinition{{Name: "n", Kind: config.FlagKindCount}}},
		{Pattern: "approve", Handler: "admin.approve", Privileged: true},
	}
	fun := fakeModule{
		name:     "fun",
		commands: map[string]Handler{"fun.insult": stubHandler("you smell")},
		events:   []EventRoute{{Type: "reaction_added", Handler: stubHandler("")}},
	}
	admin := fakeModule{
		name:     "admin",
		commands: map[string]Handler{"admin.approve": stubHandler("ok")},
		actions:  []Route{{ID: "approve-user", Handler: stubHandler("ok"), Privileged: true}},
	}

	tables, err := Build(defs, fun, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, tables.Registry.Len())
	assert.True(t, tables.Registry.Sealed())
	assert.Equal(t, []string{"reaction_added"}, tables.Events.Types())

	m, ok := tables.Registry.Match("please insult bob -n 4")
	require.True(t, ok)
	assert.Equal(t, "fun.insult", m.Entry.Name)
	assert.Equal(t, 4, Extract(m).Count("n"))

	m, ok = tables.Registry.Match("approve U1")
	require.True(t, ok)
	assert.True(t, m.Entry.Privileged)

	_, ok = tables.Router.Resolve("approve-user")
	assert.True(t, ok)

	assert.ErrorIs(t, tables.Router.Add(Route{ID: "late", Handler: stubHandler("")}), domerrors.ErrSealed)
	assert.ErrorIs(t, tables.Events.Add(EventRoute{Type: "late", Handler: stubHandler("")}), domerrors.ErrSealed)
}

func TestBuild_RejectsDuplicates(t *testing.T) {
	t.Parallel()
	h := stubHandler("x")
	tests := []struct {
		name    string
		defs    []config.CommandDefinition
		modules []Module
	}{
		{
			name:    "pattern",
			defs:    []config.CommandDefinition{{Pattern: "Insult", Handler: "a"}, {Pattern: "insult", Handler: "a"}},
			modules: []Module{fakeModule{name: "m", commands: map[string]Handler{"a": h}}},
		},
		{
			name: "handler name",
			modules: []Module{
				fakeModule{name: "m1", commands: map[string]Handler{"a": h}},
				fakeModule{name: "m2", commands: map[string]Handler{"a": h}},
			},
		},
		{
			name: "action",
			modules: []Module{
				fakeModule{name: "m1", actions: []Route{{ID: "approve-user", Handler: h}}},
				fakeModule{name: "m2", actions: []Route{{ID: "approve-user", Handler: h}}},
			},
		},
		{
			name: "event",
			modules: []Module{
				fakeModule{name: "m1", events: []EventRoute{{Type: "pin_added", Handler: h}}},
				fakeModule{name: "m2", events: []EventRoute{{Type: "pin_added", Handler: h}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Build(tt.defs, tt.modules...)
			require.Error(t, err)
			assert.True(t, domerrors.IsDuplicateRegistration(err), err.Error())
		})
	}
}

func TestBuild_UnknownHandler(t *testing.T) {
	t.Parallel()
	_, err := Build([]config.CommandDefinition{{Pattern: "dance", Handler: "fun.dance"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown handler "fun.dance"`)
}

func TestBuild_DefaultDefinitionsNeedEveryHandler(t *testing.T) {
	t.Parallel()
	defs, err := config.DefaultCommands()
	require.NoError(t, err)

	handlers := map[string]Handler{}
	for _, d := range defs {
		handlers[d.Handler] = func(context.Context, *Request) (Envelope, error) { return None(), nil }
	}
	tables, err := Build(defs, fakeModule{name: "all", commands: handlers})
	require.NoError(t, err)
	assert.Equal(t, len(defs), tables.Registry.Len())
}
