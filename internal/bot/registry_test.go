package bot

import (
	"context"
	"testing"

	"github.com/garyellow/chatbot-go/internal/config"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubHandler(reply string) Handler {
	return func(context.Context, *Request) (Envelope, error) {
		return Text(reply), nil
	}
}

func mustRegister(t *testing.T, r *Registry, e Entry) {
	t.Helper()
	if e.Handler == nil {
		e.Handler = stubHandler(e.Pattern)
	}
	if e.Name == "" {
		e.Name = e.Pattern
	}
	require.NoError(t, r.Register(e))
}

func TestRegistry_DuplicatePattern(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	mustRegister(t, r, Entry{Pattern: "new game", Name: "game.rules"})

	tests := []string{"new game", "NEW GAME", "  new   game "}
	for _, pattern := range tests {
		err := r.Register(Entry{Pattern: pattern, Name: "other", Handler: stubHandler("x")})
		require.Error(t, err, pattern)
		assert.True(t, domerrors.IsDuplicateRegistration(err), pattern)
	}

	// A regex with the same source is a different pattern.
	require.NoError(t, r.Register(Entry{Pattern: "new game", Regex: true, Name: "re", Handler: stubHandler("x")}))
}

func TestRegistry_Validation(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	assert.True(t, domerrors.IsInvalidInput(r.Register(Entry{Pattern: "  ", Handler: stubHandler("x")})))
	assert.True(t, domerrors.IsInvalidInput(r.Register(Entry{Pattern: "x"})))
	assert.Error(t, r.Register(Entry{Pattern: "([", Regex: true, Handler: stubHandler("x")}))
	assert.Zero(t, r.Len())
}

func TestRegistry_Seal(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	mustRegister(t, r, Entry{Pattern: "quote"})
	r.Seal()

	assert.True(t, r.Sealed())
	err := r.Register(Entry{Pattern: "scores", Handler: stubHandler("x")})
	assert.ErrorIs(t, err, domerrors.ErrSealed)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ListAllKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	for _, p := range []string{"zeta", "alpha", "mid"} {
		mustRegister(t, r, Entry{Pattern: p})
	}

	var got []string
	for _, e := range r.ListAll() {
		got = append(got, e.Pattern)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, got)
}

func TestRegistry_Search(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	mustRegister(t, r, Entry{Pattern: "quote", Help: "random line from the quote book"})
	mustRegister(t, r, Entry{Pattern: "scores", Help: "Button game leaderboard"})

	assert.Len(t, r.Search(""), 2)
	assert.Len(t, r.Search("QUOTE"), 1)
	got := r.Search("leaderboard")
	require.Len(t, got, 1)
	assert.Equal(t, "scores", got[0].Pattern)
	assert.Empty(t, r.Search("nothing"))
}

func TestRegistry_BindDefinitions(t *testing.T) {
	t.Parallel()
	defs := []config.CommandDefinition{
		{Pattern: "insult", Handler: "fun.insult", Help: "insult", Flags: []config.FlagDefinition{
			{Name: "g", Aliases: []string{"group"}, Kind: config.FlagKindString},
			{Name: "n", Kind: config.FlagKindCount},
		}},
		{Pattern: "missing", Handler: "nope.nope"},
	}
	r := NewRegistry()
	err := r.BindDefinitions(defs, map[string]Handler{"fun.insult": stubHandler("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown handler "nope.nope"`)

	entries := r.ListAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "fun.insult", entries[0].Name)
	assert.Equal(t, []FlagSpec{
		{Name: "g", Aliases: []string{"group"}},
		{Name: "n", Count: true},
	}, entries[0].Flags)
}

func TestCompilePattern_WordBoundaries(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pattern string
		text    string
		want    bool
	}{
		{"quote", "quote", true},
		{"quote", "a quote please", true},
		{"quote", "quotes", false},
		{"quote", "misquote", false},
		{"new game", "NEW   GAME", true},
		{"c++", "i like c++ a lot", true},
		{"¯\\_(ツ)_/¯", "well ¯\\_(ツ)_/¯", true},
	}
	for _, tt := range tests {
		re, err := compilePattern(tt.pattern, false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, re.MatchString(tt.text), "%q in %q", tt.pattern, tt.text)
	}
}
