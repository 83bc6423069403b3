// Package game implements the button game: press a button, score points,
// climb the leaderboard.
package game

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/storage"
	"github.com/slack-go/slack"
)

// Module constants
const (
	ModuleName = "game"

	CmdRules  = "game.rules"
	CmdStart  = "game.start"
	CmdScores = "game.scores"

	// ActionPrefix routes every game button, e.g. "buttongame-3".
	ActionPrefix = "buttongame"
)

const (
	buttons          = 5
	leaderboardLimit = 10
)

// Rules is the reply to "new game".
const Rules = "*Button game*\n" +
	"Send `new game start` and I will post five buttons worth 1 to 5 points. " +
	"Every press adds that many points to your score. `scores` shows the leaderboard."

// Handler serves the game commands and button presses.
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
		CmdRules:  h.handleRules,
		CmdStart:  h.handleStart,
		CmdScores: h.handleScores,
	}
}

func (h *Handler) Actions() []bot.Route {
	return []bot.Route{{ID: ActionPrefix, Prefix: true, Name: "game.press", Handler: h.handlePress}}
}

func (h *Handler) Events() []bot.EventRoute { return nil }

func (h *Handler) handleRules(context.Context, *bot.Request) (bot.Envelope, error) {
	return bot.Text(Rules), nil
}

func (h *Handler) handleStart(context.Context, *bot.Request) (bot.Envelope, error) {
	elems := make([]slack.BlockElement, 0, buttons)
	for i := 1; i <= buttons; i++ {
		n := strconv.Itoa(i)
		elems = append(elems, slack.NewButtonBlockElement(ActionPrefix+"-"+n, n,
			slack.NewTextBlockObject(slack.PlainTextType, n, false, false)))
	}
	return bot.Blocks(
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "*Press a button!*", false, false), nil, nil),
		slack.NewActionBlock("buttongame", elems...),
	), nil
}

func (h *Handler) handlePress(ctx context.Context, req *bot.Request) (bot.Envelope, error) {
	points, ok := Points(req.Action)
	if !ok {
		h.logger.WarnContext(ctx, "Ignoring malformed game button",
			"action_id", req.Action.ID,
			"value", req.Action.Value)
		return bot.None(), nil
	}

	var total int64
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		var err error
		total, err = s.AddScore(ctx, req.Caller.UserID, int64(points))
		return err
	})
	if err != nil {
		return bot.None(), err
	}
	return bot.Text(fmt.Sprintf("<@%s> scored %d! Total: %d", req.Caller.UserID, points, total)), nil
}

func (h *Handler) handleScores(ctx context.Context, _ *bot.Request) (bot.Envelope, error) {
	var top []storage.Score
	err := h.db.WithSession(ctx, func(s *storage.Session) error {
		var err error
		top, err = s.TopScores(ctx, leaderboardLimit)
		return err
	})
	if err != nil {
		return bot.None(), err
	}
	if len(top) == 0 {
		return bot.Text("Nobody has scored yet. Send `new game start`."), nil
	}
	lines := make([]string, 0, len(top)+1)
	lines = append(lines, "*Leaderboard*")
	for i, s := range top {
		lines = append(lines, fmt.Sprintf("%d. <@%s> %d", i+1, s.UserID, s.Score))
	}
	return bot.Text(strings.Join(lines, "\n")), nil
}

// Points reads the score of a button press from its value, falling back to
// the action ID suffix. Only 1 to 5 are valid.
func Points(a bot.Action) (int, bool) {
	raw := a.Value
	if raw == "" {
		raw = strings.TrimPrefix(strings.TrimPrefix(a.ID, ActionPrefix), "-")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > buttons {
		return 0, false
	}
	return n, true
}
