package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		in     string
		bot    string
		maxLen int
		want   string
	}{
		{"collapses whitespace", "  insult \t  me\n\n", "", 0, "insult me"},
		{"strips bot mention", "<@UBOT> insult me", "UBOT", 0, "insult me"},
		{"strips labelled bot mention", "hey <@UBOT|chatbot>, help", "UBOT", 0, "hey , help"},
		{"keeps other mentions", "<@UBOT> insult <@U123>", "UBOT", 0, "insult <@U123>"},
		{"no bot id keeps mentions", "<@UBOT> hi", "", 0, "<@UBOT> hi"},
		{"drops control characters", "ins\x00ult\x07 me", "", 0, "insult me"},
		{"NFKC folds fullwidth", "ｉｎｓｕｌｔ", "", 0, "insult"},
		{"caps length in runes", "ééééé", "", 3, "ééé"},
		{"trims after cap", "ab cd", "", 3, "ab"},
		{"empty", "   ", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Sanitize(tt.in, tt.bot, tt.maxLen))
		})
	}
}

func TestSanitize_HugeInputIsBounded(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("insult ", 10_000)
	out := Sanitize(in, "", 4000)
	assert.LessOrEqual(t, len([]rune(out)), 4000)
	assert.True(t, strings.HasPrefix(out, "insult insult"))
}

func TestMentionedUsers(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"U1", "W2"}, MentionedUsers("hi <@U1> and <@W2|bob>"))
	assert.Equal(t, []string{"U1"}, MentionedUsers("<@U1> <@U1|alice>"), "repeated mentions collapse")
	assert.Nil(t, MentionedUsers("nobody here <#C1>"))
}
