package bot

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/garyellow/chatbot-go/internal/sliceutil"
	"golang.org/x/text/unicode/norm"
)

// mentionPattern matches Slack user mention markup: <@U123> or <@U123|name>.
var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

// Sanitize prepares inbound text for matching: NFKC normalization, removal
// of mentions of the bot itself, control characters dropped, whitespace
// collapsed, and the result capped at maxLen runes (0 means no cap).
func Sanitize(text, botUserID string, maxLen int) string {
	text = norm.NFKC.String(text)
	if botUserID != "" {
		text = mentionPattern.ReplaceAllStringFunc(text, func(m string) string {
			if sub := mentionPattern.FindStringSubmatch(m); len(sub) == 2 && sub[1] == botUserID {
				return " "
			}
			return m
		})
	}
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	text = strings.Join(strings.Fields(text), " ")

	if maxLen > 0 {
		if runes := []rune(text); len(runes) > maxLen {
			text = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return text
}

// MentionedUsers returns the distinct user IDs mentioned in text, in order.
func MentionedUsers(text string) []string {
	var out []string
	for _, sub := range mentionPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, sub[1])
	}
	return sliceutil.Unique(out)
}
