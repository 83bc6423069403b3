// Package bot is the dispatch core: it matches free text against registered
// command patterns, routes UI actions and platform events, and runs the
// resolved handler inside a failure boundary.
package bot

import (
	"context"
)

// Kinds of dispatch. They double as metric and log labels.
const (
	KindText   = "text"
	KindAction = "action"
	KindEvent  = "event"
)

// Handler runs one command, action or event. Returning an error turns the
// dispatch into a failure; returning None() is an intentional silent success.
type Handler func(ctx context.Context, req *Request) (Envelope, error)

// Caller identifies who triggered a dispatch and where.
type Caller struct {
	UserID    string
	ChannelID string
	ThreadTS  string // empty outside threads
	Platform  string // "slack" or "line"
}

// Action is the payload of a UI interaction.
type Action struct {
	ID              string
	Value           string
	SelectedOptions []string
	SelectedUsers   []string
	// Inputs holds values of input blocks on the same message, by action ID.
	Inputs    map[string]string
	MessageTS string
}

// Event is a non-message platform event such as a reaction or a pin.
type Event struct {
	Type      string // reaction_added, pin_added, user_change
	MessageTS string
	Reaction  string
	Text      string
	ItemUser  string
	Attrs     map[string]string
}

// Request is everything a handler gets to see.
type Request struct {
	Kind    string
	Command string // handler name, action ID or event type
	Caller  Caller

	// Text dispatches.
	Text        string
	MatchedText string
	Args        Args

	Action Action
	Event  Event

	// Flows gives access to multi-step flow state of the acting user.
	Flows *FlowAccessor
}

// Attr returns the named event attribute or "".
func (e Event) Attr(name string) string {
	return e.Attrs[name]
}

// Input returns the value of the input block with the given action ID.
func (a Action) Input(actionID string) string {
	return a.Inputs[actionID]
}
