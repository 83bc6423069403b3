// Package admin implements the privileged commands: approving users and
// managing bot settings.
package admin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/garyellow/chatbot-go/internal/bot"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/sliceutil"
	"github.com/garyellow/chatbot-go/internal/storage"
	"github.com/slack-go/slack"
)

// Module constants
const (
	ModuleName = "admin"

	CmdApprove  = "admin.approve"
	CmdSet      = "admin.set"
	CmdSettings = "admin.settings"

	ActionApproveUser = "approve-user"
)

var userIDPattern = regexp.MustCompile(`^[UW][A-Z0-9]{2,}$`)

// Handler serves the admin commands. Every entry point is privileged; the
// dispatcher enforces that before any handler here runs.
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
		CmdApprove:  h.handleApprove,
		CmdSet:      h.handleSet,
		CmdSettings: h.handleSettings,
	}
}

func (h *Handler) Actions() []bot.Route {
	return []bot.Route{{ID: ActionApproveUser, Name: "admin.approve_user", Handler: h.handleApproveAction, Privileged: true}}
}

func (h *Handler) Events() []bot.EventRoute { return nil }

func (h *Handler) handleApprove(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	users := UserIDs(req.Text, req.Args.Target)
	if len(users) == 0 {
		return bot.Text("Usage: `approve <@user> [<@user>...]`"), nil
	}
	return h.approve(ctx, req.Caller.UserID, users)
}

func (h *Handler) handleApproveAction(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	users := req.Action.SelectedUsers
	if len(users) == 0 && req.Action.Value != "" {
		users = []string{req.Action.Value}
	}
	if len(users) == 0 {
		return bot.None(), nil
	}
	return h.approve(ctx, req.Caller.UserID, users)
}

func (h *Handler) approve(ctx context.Context, by string, users []string) (bot.Envelope, error) {
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		for _, u := range users {
			if err := s.Approve(ctx, u, by); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return bot.None(), domerrors.NewWrapper(ModuleName, "approve").Wrap(err, "Approving failed, nobody was approved.")
	}
	h.logger.InfoContext(ctx, "Users approved", "approved_by", by, "users", users)

	mentions := make([]string, len(users))
	for i, u := range users {
		mentions[i] = "<@" + u + ">"
	}
	return bot.Text("Approved " + strings.Join(mentions, ", ") + "."), nil
}

func (h *Handler) handleSet(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	key, value, _ := strings.Cut(req.Args.Target, " ")
	key, value = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)
	if key == "" || value == "" {
		return bot.Text("Usage: `set <key> <value>`"), nil
	}
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		return s.SetSetting(ctx, key, value, req.Caller.UserID)
	})
	if err != nil {
		return bot.None(), err
	}
	return bot.Text(fmt.Sprintf("`%s` is now `%s`.", key, value)), nil
}

func (h *Handler) handleSettings(ctx context.Context, _ *bot.Request) (bot.Envelope, error) {
	var settings []storage.Setting
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		var err error
		settings, err = s.ListSettings(ctx)
		return err
	})
	if err != nil {
		return bot.None(), err
	}

	var b strings.Builder
	b.WriteString("*Settings*")
	if len(settings) == 0 {
		b.WriteString("\nNothing set yet.")
	}
	for _, s := range settings {
		fmt.Fprintf(&b, "\n`%s` = `%s` (by <@%s>)", s.Key, s.Value, s.UpdatedBy)
	}

	picker := slack.NewOptionsSelectBlockElement(slack.OptTypeUser,
		slack.NewTextBlockObject(slack.PlainTextType, "Approve a user", false, false), ActionApproveUser)
	return bot.Blocks(
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, b.String(), false, false), nil, nil),
		slack.NewDividerBlock(),
		slack.NewActionBlock("admin-approve", picker),
	), nil
}

// UserIDs collects user IDs from mention markup in text, or from bare IDs
// in target when there are no mentions.
func UserIDs(text, target string) []string {
	if ids := bot.MentionedUsers(text); len(ids) > 0 {
		return ids
	}
	var ids []string
	for _, w := range strings.Fields(target) {
		if userIDPattern.MatchString(w) {
			ids = append(ids, w)
		}
	}
	return sliceutil.Unique(ids)
}
