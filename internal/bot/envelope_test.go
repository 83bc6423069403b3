package bot

import (
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
)

func TestEnvelopeConstructors(t *testing.T) {
	t.Parallel()
	assert.True(t, None().IsNone())
	assert.True(t, Text("  ").IsNone())
	assert.True(t, Blocks().IsNone())

	e := Text("hello")
	assert.Equal(t, EnvelopeText, e.Kind)
	assert.Equal(t, "text", e.Kind.String())
	assert.Equal(t, "blocks", EnvelopeBlocks.String())
	assert.Equal(t, "none", EnvelopeNone.String())
}

func TestStateTerminal(t *testing.T) {
	t.Parallel()
	for _, s := range []State{StateRejected, StateCompleted, StateFailed, StateIgnored} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []State{StateReceived, StateMatched, StateRouted, StateAuthorized, StateExecuting} {
		assert.False(t, s.Terminal(), s)
	}
}

func TestEnvelope_PlainText(t *testing.T) {
	t.Parallel()
	env := Blocks(
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Button game", false, false)),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "Press a button", false, false),
			[]*slack.TextBlockObject{slack.NewTextBlockObject(slack.MarkdownType, "*Score:* 3", false, false)},
			nil),
		slack.NewDividerBlock(),
		slack.NewActionBlock("game",
			slack.NewButtonBlockElement("buttongame-1", "1", slack.NewTextBlockObject(slack.PlainTextType, "One", false, false)),
			slack.NewButtonBlockElement("buttongame-2", "2", slack.NewTextBlockObject(slack.PlainTextType, "Two", false, false))),
		slack.NewInputBlock("url",
			slack.NewTextBlockObject(slack.PlainTextType, "Image URL", false, false), nil,
			slack.NewPlainTextInputBlockElement(nil, "url")),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, "by <@U1>", false, false)),
	)

	want := "Button game\nPress a button\n*Score:* 3\n[One] [Two]\nImage URL:\nby <@U1>"
	assert.Equal(t, want, env.PlainText())
	assert.Equal(t, "hi", Text("hi").PlainText())
	assert.Empty(t, None().PlainText())
}
