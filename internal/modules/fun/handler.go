// Package fun implements the insult, compliment and uwu commands.
package fun

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/garyellow/chatbot-go/internal/logger"
)

// Module constants
const (
	ModuleName = "fun"

	CmdInsult     = "fun.insult"
	CmdCompliment = "fun.compliment"
	CmdUwu        = "fun.uwu"
)

// maxLines bounds how many lines one reply may carry.
const maxLines = 10

// Handler serves the fun commands.
type Handler struct {
	logger *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHandler creates a Handler. A nil rng seeds one randomly.
func NewHandler(log *logger.Logger, rng *rand.Rand) *Handler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Handler{logger: log, rng: rng}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

// Commands returns the command handlers by name.
func (h *Handler) Commands() map[string]bot.Handler {
	return map[string]bot.Handler{
		CmdInsult:     h.handleInsult,
		CmdCompliment: h.handleCompliment,
		CmdUwu:        h.handleUwu,
	}
}

func (h *Handler) Actions() []bot.Route     { return nil }
func (h *Handler) Events() []bot.EventRoute { return nil }

func (h *Handler) handleInsult(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	return h.say(ctx, req, insults, "%s, you %s %s.")
}

func (h *Handler) handleCompliment(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	return h.say(ctx, req, compliments, "%s, you %s %s!")
}

func (h *Handler) say(ctx context.Context, req *bot.Request, table map[Group]wordList, format string) (bot.Envelope, error) {
	group, known := ParseGroup(req.Args.Flag("g", ""))
	if !known && req.Args.Flag("g", "") != "" {
		h.logger.DebugContext(ctx, "Unknown word group, using default",
			"command", req.Command,
			"group", req.Args.Flag("g", ""))
	}
	words := table[group]
	target := RemapTarget(req.Args.Target, req.Caller.UserID)

	n := min(max(req.Args.Count("n"), 1), maxLines)
	lines := make([]string, 0, n)
	h.mu.Lock()
	for range n {
		adj := words.adjectives[h.rng.IntN(len(words.adjectives))]
		noun := words.nouns[h.rng.IntN(len(words.nouns))]
		lines = append(lines, fmt.Sprintf(format, target, adj, noun))
	}
	h.mu.Unlock()
	return bot.Text(strings.Join(lines, "\n")), nil
}

func (h *Handler) handleUwu(_ context.Context, req *bot.Request) (bot.Envelope, error) {
	text := req.Args.Target
	if text == "" {
		return bot.Text("Give me something to uwu-ify."), nil
	}
	h.mu.Lock()
	face := h.rng.IntN(len(faces))
	h.mu.Unlock()
	return bot.Text(Uwuify(text, face)), nil
}

// RemapTarget turns a first-person or missing target into a mention of the
// caller.
func RemapTarget(target, callerID string) string {
	switch strings.ToLower(strings.TrimSpace(target)) {
	case "", "me", "myself":
		if callerID == "" {
			return "you"
		}
		return "<@" + callerID + ">"
	}
	return target
}
