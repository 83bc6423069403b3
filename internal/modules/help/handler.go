// Package help lists the registered commands.
package help

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/garyellow/chatbot-go/internal/bot"
)

// Module constants
const (
	ModuleName = "help"

	CmdList = "help.list"
)

// Catalog is the view of the registry the help command needs.
type Catalog interface {
	ListAll() []bot.Entry
	Search(term string) []bot.Entry
}

// Handler serves the help command. The catalog is attached after the
// registry has been built, since the registry needs this handler first.
type Handler struct {
	catalog atomic.Pointer[Catalog]
}

// NewHandler creates a Handler without a catalog.
func NewHandler() *Handler {
	return &Handler{}
}

// Attach sets the catalog listed by the help command.
func (h *Handler) Attach(c Catalog) {
	h.catalog.Store(&c)
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

func (h *Handler) Commands() map[string]bot.Handler {
	return map[string]bot.Handler{CmdList: h.handleList}
}

func (h *Handler) Actions() []bot.Route     { return nil }
func (h *Handler) Events() []bot.EventRoute { return nil }

func (h *Handler) handleList(_ context.Context, req *bot.Request) (bot.Envelope, error) {
	c := h.catalog.Load()
	if c == nil {
		return bot.Text("Help is not available yet."), nil
	}

	term := strings.TrimSpace(req.Args.Target)
	var entries []bot.Entry
	if term == "" {
		entries = (*c).ListAll()
	} else {
		entries = (*c).Search(term)
	}
	if len(entries) == 0 {
		return bot.Text(fmt.Sprintf("No commands match %q.", term)), nil
	}
	return bot.Text(Render(entries)), nil
}

// Render formats entries one per line, marking privileged ones.
func Render(entries []bot.Entry) string {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "*Commands*")
	for _, e := range entries {
		line := e.Help
		if line == "" {
			line = e.Pattern
		}
		if e.Privileged {
			line += " (admin)"
		}
		lines = append(lines, "• "+line)
	}
	return strings.Join(lines, "\n")
}
