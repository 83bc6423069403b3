package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/garyellow/chatbot-go/internal/config"
	"github.com/garyellow/chatbot-go/internal/ctxutil"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/tidwall/gjson"
)

const platformSlack = "slack"

// SlackPoster posts messages. *slack.Client implements it.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackConfig holds configuration for creating a SlackHandler.
type SlackConfig struct {
	SigningSecret string
	Client        SlackPoster
	Dispatcher    Dispatcher
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
}

// SlackHandler serves the Slack Events API and interactivity endpoints.
type SlackHandler struct {
	inflight
	signingSecret string
	client        SlackPoster
	dispatcher    Dispatcher
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

// NewSlackHandler creates a SlackHandler.
func NewSlackHandler(cfg SlackConfig) *SlackHandler {
	return &SlackHandler{
		signingSecret: cfg.SigningSecret,
		client:        cfg.Client,
		dispatcher:    cfg.Dispatcher,
		logger:        cfg.Logger.WithModule("slack"),
		metrics:       cfg.Metrics,
	}
}

// verify reads the body and checks the Slack request signature.
func (h *SlackHandler) verify(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read Slack request body")
		c.Status(http.StatusBadRequest)
		return nil, false
	}
	sv, err := slack.NewSecretsVerifier(c.Request.Header, h.signingSecret)
	if err == nil {
		_, _ = sv.Write(body)
		err = sv.Ensure()
	}
	if err != nil {
		h.logger.WithError(err).Warn("Invalid Slack signature")
		h.metrics.RecordWebhook(platformSlack, "unauthorized")
		c.Status(http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}

// HandleEvents is the Gin handler for /slack/events.
func (h *SlackHandler) HandleEvents(c *gin.Context) {
	body, ok := h.verify(c)
	if !ok {
		return
	}

	switch gjson.GetBytes(body, "type").String() {
	case slackevents.URLVerification:
		c.String(http.StatusOK, gjson.GetBytes(body, "challenge").String())
		return
	case slackevents.CallbackEvent:
	default:
		c.Status(http.StatusOK)
		return
	}

	c.Status(http.StatusOK)
	h.metrics.RecordWebhook(platformSlack, "accepted")

	if retry := c.GetHeader("X-Slack-Retry-Num"); retry != "" {
		h.logger.Debug("Slack redelivery", "retry_num", retry, "reason", c.GetHeader("X-Slack-Retry-Reason"))
	}
	requestID := gjson.GetBytes(body, "event_id").String()

	h.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async Slack event processing")
			}
		}()
		ctx := context.Background()
		if requestID != "" {
			ctx = ctxutil.WithRequestID(ctx, requestID)
		}
		h.processEvent(ctx, body)
	})
}

func (h *SlackHandler) processEvent(ctx context.Context, body []byte) {
	inner := gjson.GetBytes(body, "event")
	eventType := inner.Get("type").String()

	switch eventType {
	case "message", "reaction_added":
		h.processTypedEvent(ctx, body)
	case "pin_added":
		msg := inner.Get("item.message")
		caller := bot.Caller{
			UserID:    inner.Get("user").String(),
			ChannelID: inner.Get("channel_id").String(),
			Platform:  platformSlack,
		}
		ev := bot.Event{
			Type:      eventType,
			MessageTS: firstNonEmpty(msg.Get("ts").String(), inner.Get("event_ts").String()),
			Text:      msg.Get("text").String(),
			ItemUser:  msg.Get("user").String(),
		}
		h.reply(ctx, caller, h.dispatcher.DispatchEvent(ctx, ev, caller))
	case "user_change":
		user := inner.Get("user")
		caller := bot.Caller{UserID: user.Get("id").String(), Platform: platformSlack}
		ev := bot.Event{
			Type:      eventType,
			MessageTS: inner.Get("event_ts").String(),
			Attrs: map[string]string{
				"id":           user.Get("id").String(),
				"name":         user.Get("name").String(),
				"real_name":    firstNonEmpty(user.Get("real_name").String(), user.Get("profile.real_name").String()),
				"display_name": user.Get("profile.display_name").String(),
			},
		}
		// Profile changes never reply.
		h.dispatcher.DispatchEvent(ctx, ev, caller)
	default:
		h.logger.DebugContext(ctx, "Unsupported Slack event", "event_type", eventType)
	}
}

func (h *SlackHandler) processTypedEvent(ctx context.Context, body []byte) {
	parsed, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		h.logger.WithError(err).WarnContext(ctx, "Failed to parse Slack event")
		return
	}

	switch ev := parsed.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.BotID != "" || ev.SubType != "" || ev.User == "" {
			return
		}
		caller := bot.Caller{
			UserID:    ev.User,
			ChannelID: ev.Channel,
			ThreadTS:  ev.ThreadTimeStamp,
			Platform:  platformSlack,
		}
		h.reply(ctx, caller, h.dispatcher.DispatchText(ctx, ev.Text, caller))
	case *slackevents.ReactionAddedEvent:
		caller := bot.Caller{UserID: ev.User, ChannelID: ev.Item.Channel, Platform: platformSlack}
		out := bot.Event{
			Type:      "reaction_added",
			MessageTS: ev.Item.Timestamp,
			Reaction:  ev.Reaction,
			ItemUser:  ev.ItemUser,
		}
		h.reply(ctx, caller, h.dispatcher.DispatchEvent(ctx, out, caller))
	}
}

// HandleInteractions is the Gin handler for /slack/interactions.
func (h *SlackHandler) HandleInteractions(c *gin.Context) {
	body, ok := h.verify(c)
	if !ok {
		return
	}
	form, err := url.ParseQuery(string(body))
	if err != nil || form.Get("payload") == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		h.logger.WithError(err).Warn("Failed to parse Slack interaction payload")
		c.Status(http.StatusBadRequest)
		return
	}

	c.Status(http.StatusOK)
	h.metrics.RecordWebhook(platformSlack, "accepted")
	if cb.Type != slack.InteractionTypeBlockActions {
		return
	}

	caller := bot.Caller{
		UserID:    cb.User.ID,
		ChannelID: cb.Channel.ID,
		ThreadTS:  cb.Message.ThreadTimestamp,
		Platform:  platformSlack,
	}
	actions := BlockActions(&cb)

	h.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async Slack interaction processing")
			}
		}()
		ctx := ctxutil.WithRequestID(context.Background(), cb.TriggerID)
		for _, a := range actions {
			h.reply(ctx, caller, h.dispatcher.DispatchAction(ctx, a, caller))
		}
	})
}

// BlockActions converts the block actions of an interaction into dispatcher
// actions. Input state from the whole surface is attached to each.
func BlockActions(cb *slack.InteractionCallback) []bot.Action {
	inputs := make(map[string]string)
	if cb.BlockActionState != nil {
		for _, byAction := range cb.BlockActionState.Values {
			for actionID, ba := range byAction {
				inputs[actionID] = blockActionValue(ba)
			}
		}
	}

	out := make([]bot.Action, 0, len(cb.ActionCallback.BlockActions))
	for _, ba := range cb.ActionCallback.BlockActions {
		a := bot.Action{
			ID:        ba.ActionID,
			Value:     ba.Value,
			Inputs:    inputs,
			MessageTS: firstNonEmpty(cb.Message.Timestamp, cb.Container.MessageTs),
		}
		if ba.SelectedOption.Value != "" {
			a.SelectedOptions = append(a.SelectedOptions, ba.SelectedOption.Value)
		}
		for _, o := range ba.SelectedOptions {
			a.SelectedOptions = append(a.SelectedOptions, o.Value)
		}
		if ba.SelectedUser != "" {
			a.SelectedUsers = append(a.SelectedUsers, ba.SelectedUser)
		}
		a.SelectedUsers = append(a.SelectedUsers, ba.SelectedUsers...)
		out = append(out, a)
	}
	return out
}

func blockActionValue(ba slack.BlockAction) string {
	switch {
	case ba.Value != "":
		return ba.Value
	case ba.SelectedOption.Value != "":
		return ba.SelectedOption.Value
	case ba.SelectedUser != "":
		return ba.SelectedUser
	}
	return ""
}

// reply posts env to the caller's channel, in the caller's thread if any.
func (h *SlackHandler) reply(ctx context.Context, caller bot.Caller, env bot.Envelope) {
	if env.IsNone() || caller.ChannelID == "" || h.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, config.ReplyDelivery)
	defer cancel()

	opts := []slack.MsgOption{slack.MsgOptionText(env.PlainText(), false)}
	if env.Kind == bot.EnvelopeBlocks {
		opts = append(opts, slack.MsgOptionBlocks(env.Blocks...))
	}
	if caller.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(caller.ThreadTS))
	}

	start := time.Now()
	if _, _, err := h.client.PostMessageContext(ctx, caller.ChannelID, opts...); err != nil {
		var rle *slack.RateLimitedError
		if errors.As(err, &rle) {
			h.logger.WithError(err).WarnContext(ctx, "Slack rate limited the reply", "retry_after", rle.RetryAfter)
		} else {
			h.logger.WithError(err).ErrorContext(ctx, "Failed to post Slack reply", "channel_id", caller.ChannelID)
		}
		h.metrics.RecordReply(platformSlack, "error")
		return
	}
	h.metrics.RecordReply(platformSlack, "ok")
	h.logger.DebugContext(ctx, "Slack reply posted",
		"channel_id", caller.ChannelID,
		"duration_ms", time.Since(start).Milliseconds())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
