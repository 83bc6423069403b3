// Package emoji implements custom emoji: the two step submission form,
// lookup by name, and reaction statistics.
package emoji

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/garyellow/chatbot-go/internal/bot"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/storage"
	"github.com/slack-go/slack"
)

// Module constants
const (
	ModuleName = "emoji"

	CmdNew   = "emoji.new"
	CmdShow  = "emoji.show"
	CmdStats = "emoji.stats"

	EventReaction = "emoji.reaction"
)

// Form identifiers. The flow key ties step one to step two.
const (
	FlowNewEmoji = "new-emoji"

	ActionStep1  = "new-emoji-p1"
	ActionStep2  = "new-emoji-p2"
	ActionCancel = "new-emoji-cancel"

	InputURL  = "emoji-url"
	InputName = "emoji-name"
)

const statsLimit = 10

var namePattern = regexp.MustCompile(`^[a-z0-9_+-]{1,32}$`)

// Handler serves the emoji commands and form actions.
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
		CmdNew:   h.handleNew,
		CmdShow:  h.handleShow,
		CmdStats: h.handleStats,
	}
}

func (h *Handler) Actions() []bot.Route {
	return []bot.Route{
		{ID: ActionStep1, Name: "emoji.step1", Handler: h.handleStep1},
		{ID: ActionStep2, Name: "emoji.step2", Handler: h.handleStep2},
		{ID: ActionCancel, Name: "emoji.cancel", Handler: h.handleCancel},
	}
}

func (h *Handler) Events() []bot.EventRoute {
	return []bot.EventRoute{{Type: "reaction_added", Name: EventReaction, Handler: h.handleReaction}}
}

func (h *Handler) handleNew(_ context.Context, req *bot.Request) (bot.Envelope, error) {
	req.Flows.Delete(FlowNewEmoji)
	return bot.Blocks(
		slack.NewSectionBlock(mrkdwn("*New custom emoji* (step 1 of 2)"), nil, nil),
		slack.NewInputBlock("emoji-url-block", plain("Image URL"), plain("A direct link to a png or gif"),
			slack.NewPlainTextInputBlockElement(plain("https://..."), InputURL)),
		slack.NewActionBlock("emoji-step1",
			slack.NewButtonBlockElement(ActionStep1, "next", plain("Next")).WithStyle(slack.StylePrimary),
			slack.NewButtonBlockElement(ActionCancel, "cancel", plain("Cancel"))),
	), nil
}

func (h *Handler) handleStep1(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	raw := strings.TrimSpace(req.Action.Input(InputURL))
	if err := ValidateURL(raw); err != nil {
		h.logger.DebugContext(ctx, "Rejected emoji url", "url", raw)
		return bot.Text("That does not look like an image link. Send `new emoji` to try again."), nil
	}
	req.Flows.Put(FlowNewEmoji, bot.FlowData{"url": raw})

	return bot.Blocks(
		slack.NewSectionBlock(mrkdwn("*New custom emoji* (step 2 of 2)"), nil, nil),
		slack.NewImageBlock(raw, "preview", "emoji-preview", nil),
		slack.NewInputBlock("emoji-name-block", plain("Name"), plain("Lowercase letters, digits, _ + or -"),
			slack.NewPlainTextInputBlockElement(plain("party-parrot"), InputName)),
		slack.NewActionBlock("emoji-step2",
			slack.NewButtonBlockElement(ActionStep2, "save", plain("Save")).WithStyle(slack.StylePrimary),
			slack.NewButtonBlockElement(ActionCancel, "cancel", plain("Cancel"))),
	), nil
}

func (h *Handler) handleStep2(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	data, ok := req.Flows.Get(FlowNewEmoji)
	if !ok || data["url"] == "" {
		return bot.None(), domerrors.ErrMissingFlowState
	}
	name := NormalizeName(req.Action.Input(InputName))
	if !namePattern.MatchString(name) {
		return bot.Text("Emoji names are 1-32 lowercase letters, digits, `_`, `+` or `-`. Pick another name and press Save again."), nil
	}

	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		return s.AddEmoji(ctx, storage.Emoji{Name: name, URL: data["url"], AddedBy: req.Caller.UserID})
	})
	if domerrors.IsInvalidInput(err) {
		return bot.Text(fmt.Sprintf("`:%s:` is taken. Pick another name and press Save again.", name)), nil
	}
	if err != nil {
		return bot.None(), domerrors.NewWrapper(ModuleName, "save_emoji").Wrap(err, "The emoji could not be saved.")
	}

	req.Flows.Delete(FlowNewEmoji)
	h.logger.InfoContext(ctx, "Emoji added", "name", name, "user_id", req.Caller.UserID)
	return bot.Text(fmt.Sprintf("Saved `:%s:`. Show it with `emoji %s`.", name, name)), nil
}

func (h *Handler) handleCancel(_ context.Context, req *bot.Request) (bot.Envelope, error) {
	req.Flows.Delete(FlowNewEmoji)
	return bot.Text("Emoji form cancelled."), nil
}

func (h *Handler) handleShow(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	name := NormalizeName(req.Args.Target)
	if name == "" {
		return bot.Text("Usage: `emoji <name>`"), nil
	}
	var e *storage.Emoji
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		var err error
		e, err = s.GetEmoji(ctx, name)
		return err
	})
	if domerrors.IsNotFound(err) {
		return bot.Text(fmt.Sprintf("No emoji called `:%s:`.", name)), nil
	}
	if err != nil {
		return bot.None(), err
	}
	return bot.Blocks(
		slack.NewImageBlock(e.URL, e.Name, "", plain(":"+e.Name+":")),
		slack.NewContextBlock("", mrkdwn(fmt.Sprintf("added by <@%s>", e.AddedBy))),
	), nil
}

func (h *Handler) handleStats(ctx context.Context, _ *bot.Request) (bot.Envelope, error) {
	var top []storage.ReactionCount
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		var err error
		top, err = s.TopReactions(ctx, statsLimit)
		return err
	})
	if err != nil {
		return bot.None(), err
	}
	if len(top) == 0 {
		return bot.Text("No reactions counted yet."), nil
	}
	var b strings.Builder
	b.WriteString("*Most used reactions*")
	for i, r := range top {
		fmt.Fprintf(&b, "\n%d. :%s: %d", i+1, r.Reaction, r.Count)
	}
	return bot.Blocks(slack.NewSectionBlock(mrkdwn(b.String()), nil, nil)), nil
}

func (h *Handler) handleReaction(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	reaction := req.Event.Reaction
	if reaction == "" {
		return bot.None(), nil
	}
	return bot.None(), h.db.WithSession(ctx, func(s *storage.Session) error {
		_, err := s.IncrementReaction(ctx, reaction)
		return err
	})
}

// ValidateURL accepts absolute http and https links.
func ValidateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return domerrors.NewValidationError("url", err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domerrors.NewValidationError("url", "must be an http or https link")
	}
	return nil
}

// NormalizeName lowercases a name and strips surrounding colons.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), ":"))
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}
