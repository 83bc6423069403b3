package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/garyellow/chatbot-go/internal/config"
	"github.com/garyellow/chatbot-go/internal/ctxutil"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

const platformLine = "line"

// LINE API constraints.
const (
	maxEventsPerWebhook = 100
	maxTextRunes        = 5000
)

// PostbackSeparator splits LINE postback data into action ID and value.
const PostbackSeparator = "$"

// LineReplier sends reply messages. *messaging_api.MessagingApiAPI
// implements it.
type LineReplier interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// LineConfig holds configuration for creating a LineHandler.
type LineConfig struct {
	ChannelSecret string
	ChannelToken  string
	Client        LineReplier // overrides ChannelToken when set
	Dispatcher    Dispatcher
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
}

// LineHandler serves the LINE webhook endpoint. LINE has no block UI, so
// envelopes are replied as plain text.
type LineHandler struct {
	inflight
	channelSecret string
	client        LineReplier
	dispatcher    Dispatcher
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

// NewLineHandler creates a LineHandler.
func NewLineHandler(cfg LineConfig) (*LineHandler, error) {
	client := cfg.Client
	if client == nil {
		api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
		if err != nil {
			return nil, fmt.Errorf("create messaging API client: %w", err)
		}
		client = api
	}
	return &LineHandler{
		channelSecret: cfg.ChannelSecret,
		client:        client,
		dispatcher:    cfg.Dispatcher,
		logger:        cfg.Logger.WithModule("line"),
		metrics:       cfg.Metrics,
	}, nil
}

// Handle is the Gin handler for /line/callback.
func (h *LineHandler) Handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			h.metrics.RecordWebhook(platformLine, "unauthorized")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE wants 200 before any processing.
	c.Status(http.StatusOK)
	h.metrics.RecordWebhook(platformLine, "accepted")

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.logger.Warn("Too many events in webhook batch; truncating", "event_count", len(events))
		events = events[:maxEventsPerWebhook]
	}
	events = append([]webhook.EventInterface(nil), events...)

	h.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()
		for _, event := range events {
			h.processEvent(context.Background(), event)
		}
	})
}

func (h *LineHandler) processEvent(ctx context.Context, event webhook.EventInterface) {
	var (
		env        bot.Envelope
		replyToken string
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		text, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			return
		}
		ctx = withLineEventID(ctx, e.WebhookEventId)
		env = h.dispatcher.DispatchText(ctx, text.Text, lineCaller(e.Source))
		replyToken = e.ReplyToken
	case webhook.PostbackEvent:
		if e.Postback == nil {
			return
		}
		ctx = withLineEventID(ctx, e.WebhookEventId)
		env = h.dispatcher.DispatchAction(ctx, ParsePostback(e.Postback.Data), lineCaller(e.Source))
		replyToken = e.ReplyToken
	default:
		h.logger.Debug("Unsupported event type", "event_type", fmt.Sprintf("%T", e))
		return
	}
	h.reply(ctx, replyToken, env)
}

func (h *LineHandler) reply(ctx context.Context, replyToken string, env bot.Envelope) {
	if env.IsNone() || replyToken == "" {
		return
	}
	text := env.PlainText()
	if r := []rune(text); len(r) > maxTextRunes {
		text = string(r[:maxTextRunes-1]) + "…"
	}

	start := time.Now()
	_, err := h.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{messaging_api.TextMessage{Text: text}},
	})
	if err != nil {
		if strings.Contains(err.Error(), "Invalid reply token") {
			h.logger.WithError(err).DebugContext(ctx, "Reply token already used or invalid")
		} else {
			h.logger.WithError(err).ErrorContext(ctx, "Failed to send reply")
		}
		h.metrics.RecordReply(platformLine, "error")
		return
	}
	h.metrics.RecordReply(platformLine, "ok")
	if elapsed := time.Since(start); elapsed > config.ReplyDelivery {
		h.logger.WarnContext(ctx, "Slow LINE reply", "duration_ms", elapsed.Milliseconds())
	}
}

// ParsePostback splits "action_id$value" postback data.
func ParsePostback(data string) bot.Action {
	id, value, _ := strings.Cut(data, PostbackSeparator)
	return bot.Action{ID: id, Value: value}
}

func lineCaller(source webhook.SourceInterface) bot.Caller {
	c := bot.Caller{Platform: platformLine}
	switch s := source.(type) {
	case webhook.UserSource:
		c.UserID, c.ChannelID = s.UserId, s.UserId
	case webhook.GroupSource:
		c.UserID, c.ChannelID = s.UserId, s.GroupId
	case webhook.RoomSource:
		c.UserID, c.ChannelID = s.UserId, s.RoomId
	}
	return c
}

func withLineEventID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return ctxutil.WithRequestID(ctx, id)
}
