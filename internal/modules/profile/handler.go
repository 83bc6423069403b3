// Package profile caches user profiles from user_change events and answers
// whois queries.
package profile

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
	ModuleName = "profile"

	CmdWhois    = "profile.whois"
	EventChange = "profile.user_change"
)

// Event attribute names filled in by the transport.
const (
	AttrID          = "id"
	AttrName        = "name"
	AttrRealName    = "real_name"
	AttrDisplayName = "display_name"
)

// Handler serves profile events and queries.
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
	return map[string]bot.Handler{CmdWhois: h.handleWhois}
}

func (h *Handler) Actions() []bot.Route { return nil }

func (h *Handler) Events() []bot.EventRoute {
	return []bot.EventRoute{{Type: "user_change", Name: EventChange, Handler: h.handleUserChange}}
}

func (h *Handler) handleUserChange(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	u := storage.User{
		ID:          req.Event.Attr(AttrID),
		Name:        req.Event.Attr(AttrName),
		RealName:    req.Event.Attr(AttrRealName),
		DisplayName: req.Event.Attr(AttrDisplayName),
	}
	if u.ID == "" {
		u.ID = req.Caller.UserID
	}
	if u.ID == "" {
		return bot.None(), domerrors.NewValidationError(AttrID, "user_change without a user id")
	}
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		return s.SaveUser(ctx, u)
	})
	if err != nil {
		return bot.None(), err
	}
	h.logger.DebugContext(ctx, "User profile cached", "user_id", u.ID)
	return bot.None(), nil
}

func (h *Handler) handleWhois(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	id := ""
	if ids := bot.MentionedUsers(req.Text); len(ids) > 0 {
		id = ids[0]
	} else if fields := strings.Fields(req.Args.Target); len(fields) > 0 {
		id = strings.ToUpper(fields[0])
	}
	if id == "" {
		return bot.Text("Usage: `whois <@user>`"), nil
	}

	var u *storage.User
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		var err error
		u, err = s.GetUser(ctx, id)
		return err
	})
	if domerrors.IsNotFound(err) {
		return bot.Text(fmt.Sprintf("I don't know <@%s> yet.", id)), nil
	}
	if err != nil {
		return bot.None(), err
	}
	return bot.Text(Describe(u)), nil
}

// Describe renders a cached profile.
func Describe(u *storage.User) string {
	lines := []string{fmt.Sprintf("<@%s> (`%s`)", u.ID, u.ID)}
	if u.Name != "" {
		lines = append(lines, "username: "+u.Name)
	}
	if u.RealName != "" {
		lines = append(lines, "real name: "+u.RealName)
	}
	if u.DisplayName != "" {
		lines = append(lines, "display name: "+u.DisplayName)
	}
	lines = append(lines, "last seen change: "+u.UpdatedAt.UTC().Format("2006-01-02 15:04 MST"))
	return strings.Join(lines, "\n")
}
