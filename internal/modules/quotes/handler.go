// Package quotes implements the quote book: random quotes, adding quotes by
// command, and saving pinned messages.
package quotes

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyellow/chatbot-go/internal/bot"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/storage"
)

// Module constants
const (
	ModuleName = "quotes"

	CmdRandom = "quotes.random"
	CmdAdd    = "quotes.add"
	EventPin  = "quotes.pin"
)

// Handler serves the quote commands.
type Handler struct {
	db     *storage.DB
	logger *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(db *storage.DB, log *logger.Logger) *Handler {
	return &Handler{db: db, logger: log}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

func (h *Handler) Commands() map[string]bot.Handler {
	return map[string]bot.Handler{
		CmdRandom: h.handleRandom,
		CmdAdd:    h.handleAdd,
	}
}

func (h *Handler) Actions() []bot.Route { return nil }

func (h *Handler) Events() []bot.EventRoute {
	return []bot.EventRoute{{Type: "pin_added", Name: EventPin, Handler: h.handlePin}}
}

func (h *Handler) handleRandom(ctx context.Context, _ *bot.Request) (bot.Envelope, error) {
	var q *storage.Quote
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		var err error
		q, err = s.RandomQuote(ctx)
		return err
	})
	if domerrors.IsNotFound(err) {
		return bot.Text("The quote book is empty. Pin a message or use `quote add <text>`."), nil
	}
	if err != nil {
		return bot.None(), err
	}
	return bot.Text(Format(q)), nil
}

func (h *Handler) handleAdd(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	text, author := SplitAuthor(req.Args.Target)
	if text == "" {
		return bot.Text("Usage: `quote add <text> [-- author]`"), nil
	}
	id, err := h.save(ctx, text, author, req.Caller.UserID)
	if err != nil {
		return bot.None(), err
	}
	return bot.Text(fmt.Sprintf("Saved quote #%d.", id)), nil
}

func (h *Handler) handlePin(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	text := strings.TrimSpace(req.Event.Text)
	if text == "" {
		h.logger.DebugContext(ctx, "Pinned item has no text, skipping",
			"message_ts", req.Event.MessageTS)
		return bot.None(), nil
	}
	author := ""
	if req.Event.ItemUser != "" {
		author = "<@" + req.Event.ItemUser + ">"
	}
	id, err := h.save(ctx, text, author, req.Caller.UserID)
	if err != nil {
		return bot.None(), err
	}
	return bot.Text(fmt.Sprintf("Pinned message saved as quote #%d.", id)), nil
}

func (h *Handler) save(ctx context.Context, text, author, addedBy string) (int64, error) {
	var id int64
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		var err error
		id, err = s.AddQuote(ctx, text, author, addedBy)
		return err
	})
	return id, domerrors.NewWrapper(ModuleName, "add_quote").Wrap(err, "That quote could not be saved.")
}

// SplitAuthor splits "text -- author" into its parts.
func SplitAuthor(s string) (text, author string) {
	text, author, _ = strings.Cut(s, " -- ")
	return strings.TrimSpace(text), strings.TrimSpace(author)
}

// Format renders a quote for chat.
func Format(q *storage.Quote) string {
	if q.Author == "" {
		return "> " + q.Text
	}
	return "> " + q.Text + "\n- " + q.Author
}
