package bot

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type extracted struct {
	Flags  map[string]string
	Target string
}

var insultFlags = []FlagSpec{
	{Name: "g", Aliases: []string{"group"}},
	{Name: "n", Count: true},
}

func extractFor(t *testing.T, pattern string, flags []FlagSpec, text string) Args {
	t.Helper()
	r := NewRegistry()
	mustRegister(t, r, Entry{Pattern: pattern, Flags: flags})
	m, ok := r.Match(Sanitize(text, "", 0))
	require.True(t, ok, "no match for %q", text)
	return Extract(m)
}

func TestExtract(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want extracted
	}{
		{
			name: "flags after target",
			text: "insult me -g standard -n 3",
			want: extracted{Flags: map[string]string{"g": "standard", "n": "3"}, Target: "me"},
		},
		{
			name: "equals syntax and long alias",
			text: "insult bob --group=shakespeare -n=2",
			want: extracted{Flags: map[string]string{"g": "shakespeare", "n": "2"}, Target: "bob"},
		},
		{
			name: "multi word target passes through",
			text: "insult that person on the street",
			want: extracted{Flags: map[string]string{"n": "1"}, Target: "that person on the street"},
		},
		{
			name: "flags before target",
			text: "insult -n 5 the printer",
			want: extracted{Flags: map[string]string{"n": "5"}, Target: "the printer"},
		},
		{
			name: "unknown flags are dropped with their value",
			text: "insult me -x loud -g standard",
			want: extracted{Flags: map[string]string{"g": "standard", "n": "1"}, Target: "me"},
		},
		{
			name: "unknown flag with equals value is dropped",
			text: "insult that person --volume=11 on the street",
			want: extracted{Flags: map[string]string{"n": "1"}, Target: "that person on the street"},
		},
		{
			name: "unknown flag does not eat a declared flag",
			text: "insult bob -x -n 2",
			want: extracted{Flags: map[string]string{"n": "2"}, Target: "bob"},
		},
		{
			name: "negative numbers are not flags",
			text: "insult -5 points",
			want: extracted{Flags: map[string]string{"n": "1"}, Target: "-5 points"},
		},
		{
			name: "missing count value does not eat the next flag",
			text: "insult me -n -g standard",
			want: extracted{Flags: map[string]string{"g": "standard", "n": "1"}, Target: "me"},
		},
		{
			name: "string flag without value is dropped",
			text: "insult me -g",
			want: extracted{Flags: map[string]string{"n": "1"}, Target: "me"},
		},
		{
			name: "text before the trigger is not the target",
			text: "please insult",
			want: extracted{Flags: map[string]string{"n": "1"}, Target: ""},
		},
		{
			name: "flags before the trigger are ignored",
			text: "-n 4 bob insult -g pirate",
			want: extracted{Flags: map[string]string{"g": "pirate", "n": "1"}, Target: ""},
		},
		{
			name: "empty target",
			text: "insult",
			want: extracted{Flags: map[string]string{"n": "1"}, Target: ""},
		},
		{
			name: "flag names are case insensitive",
			text: "insult me -G standard",
			want: extracted{Flags: map[string]string{"g": "standard", "n": "1"}, Target: "me"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := extractFor(t, "insult", insultFlags, tt.text)
			got := extracted{Flags: args.Flags, Target: args.Target}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestExtract_TriggerMidSentence(t *testing.T) {
	t.Parallel()
	args := extractFor(t, "compliment", insultFlags, "hey all, compliment the new intern -n 2")
	assert.Equal(t, "the new intern", args.Target)
	assert.Equal(t, 2, args.Count("n"))
}

func TestExtract_NoFlagsDeclared(t *testing.T) {
	t.Parallel()
	args := extractFor(t, "quote add", nil, "quote add -n 3 be kind")
	assert.Equal(t, "be kind", args.Target)
	assert.Empty(t, args.Flags)
	assert.Equal(t, DefaultCount, args.Count("n"))
	assert.Equal(t, "fallback", args.Flag("g", "fallback"))
}

func TestParseCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		present bool
		want    int
	}{
		{"", false, 1},
		{"3", true, 3},
		{"1", true, 1},
		{"100", true, 100},
		{"101", true, 100},
		{"0", true, 1},
		{"-5", true, 1},
		{"abc", true, 1},
		{"3.5", true, 1},
		{"", true, 1},
		{"99999999999999999999999", true, 100},
		{"-99999999999999999999999", true, 1},
		{" 7 ", true, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCount(tt.raw, tt.present), "parseCount(%q, %v)", tt.raw, tt.present)
	}
}

// Whatever follows -n, the count handed to a handler stays in range.
func TestExtract_CountAlwaysInRange(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 2))
	r := NewRegistry()
	mustRegister(t, r, Entry{Pattern: "insult", Flags: insultFlags})

	raws := []string{"", "-", "--", "x", "1e9", "0x10", "-0", "+5", "９", "NaN"}
	for range 500 {
		raws = append(raws, strconv.FormatInt(rng.Int64()-rng.Int64(), 10))
	}
	for _, raw := range raws {
		for _, text := range []string{
			fmt.Sprintf("insult me -n %s", raw),
			fmt.Sprintf("insult me -n=%s", raw),
			fmt.Sprintf("insult -n %s me -n", raw),
		} {
			m, ok := r.Match(Sanitize(text, "", 0))
			require.True(t, ok)
			args := Extract(m)
			n := args.Count("n")
			assert.GreaterOrEqual(t, n, MinCount, text)
			assert.LessOrEqual(t, n, MaxCount, text)
			assert.Equal(t, strconv.Itoa(n), args.Flags["n"], text)
		}
	}
}
