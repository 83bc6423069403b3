package bot

import (
	"strings"

	"github.com/slack-go/slack"
)

// EnvelopeKind says which of text, blocks or nothing an Envelope carries.
type EnvelopeKind int

const (
	EnvelopeNone EnvelopeKind = iota
	EnvelopeText
	EnvelopeBlocks
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeText:
		return "text"
	case EnvelopeBlocks:
		return "blocks"
	default:
		return "none"
	}
}

// State is the lifecycle position of a dispatch.
type State string

const (
	StateReceived   State = "received"
	StateMatched    State = "matched"
	StateRouted     State = "routed"
	StateAuthorized State = "authorized"
	StateRejected   State = "rejected"
	StateExecuting  State = "executing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	// StateIgnored ends dispatches that resolved to nothing: unmatched text,
	// unrouted actions, duplicate events.
	StateIgnored State = "ignored"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateCompleted, StateFailed, StateIgnored:
		return true
	}
	return false
}

// Envelope is the result of one dispatch. Exactly one of Text and Blocks is
// set, or neither for a silent result. Transports decide how to deliver it
// but never change its content.
type Envelope struct {
	Kind   EnvelopeKind
	Text   string
	Blocks []slack.Block
	State  State
}

// None is a silent result.
func None() Envelope {
	return Envelope{Kind: EnvelopeNone}
}

// Text is a plain text result. Empty text is silent.
func Text(text string) Envelope {
	if strings.TrimSpace(text) == "" {
		return None()
	}
	return Envelope{Kind: EnvelopeText, Text: text}
}

// Blocks is a structured result. No blocks is silent.
func Blocks(blocks ...slack.Block) Envelope {
	if len(blocks) == 0 {
		return None()
	}
	return Envelope{Kind: EnvelopeBlocks, Blocks: blocks}
}

// IsNone reports whether nothing should be sent.
func (e Envelope) IsNone() bool {
	return e.Kind == EnvelopeNone
}

func (e Envelope) withState(s State) Envelope {
	e.State = s
	return e
}

// PlainText renders the envelope as text. Used for notification fallbacks
// and for platforms without block support.
func (e Envelope) PlainText() string {
	switch e.Kind {
	case EnvelopeText:
		return e.Text
	case EnvelopeBlocks:
		var lines []string
		for _, b := range e.Blocks {
			if line := blockText(b); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

func blockText(b slack.Block) string {
	switch blk := b.(type) {
	case *slack.SectionBlock:
		var parts []string
		if blk.Text != nil {
			parts = append(parts, blk.Text.Text)
		}
		for _, f := range blk.Fields {
			parts = append(parts, f.Text)
		}
		return strings.Join(parts, "\n")
	case *slack.HeaderBlock:
		if blk.Text != nil {
			return blk.Text.Text
		}
	case *slack.ContextBlock:
		var parts []string
		for _, el := range blk.ContextElements.Elements {
			if t, ok := el.(*slack.TextBlockObject); ok {
				parts = append(parts, t.Text)
			}
		}
		return strings.Join(parts, " ")
	case *slack.ActionBlock:
		var labels []string
		for _, el := range blk.Elements.ElementSet {
			if btn, ok := el.(*slack.ButtonBlockElement); ok && btn.Text != nil {
				labels = append(labels, "["+btn.Text.Text+"]")
			}
		}
		return strings.Join(labels, " ")
	case *slack.InputBlock:
		if blk.Label != nil {
			return blk.Label.Text + ":"
		}
	case *slack.ImageBlock:
		return strings.TrimSpace(blk.AltText + " " + blk.ImageURL)
	}
	return ""
}
