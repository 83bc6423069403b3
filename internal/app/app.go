// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/garyellow/chatbot-go/internal/buildinfo"
	"github.com/garyellow/chatbot-go/internal/config"
	"github.com/garyellow/chatbot-go/internal/ctxutil"
	"github.com/garyellow/chatbot-go/internal/dedup"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/metrics"
	"github.com/garyellow/chatbot-go/internal/ratelimit"
	"github.com/garyellow/chatbot-go/internal/scraper"
	"github.com/garyellow/chatbot-go/internal/sentry"
	"github.com/garyellow/chatbot-go/internal/storage"
	"github.com/garyellow/chatbot-go/internal/webhook"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg         *config.Config
	logger      *logger.Logger
	db          *storage.DB
	dedup       dedup.Store
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	tables      *bot.Tables
	dispatcher  *bot.Dispatcher
	userLimiter *ratelimit.KeyedLimiter
	slackClient *slack.Client
	slack       *webhook.SlackHandler // nil when Slack is not configured
	line        *webhook.LineHandler  // nil when LINE is not configured
	server      *http.Server
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "chatbot-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context() calls pick up user, channel and request
	// IDs through the ContextHandler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
	}); err != nil {
		log.WithError(err).Warn("Error reporting disabled")
	} else if sentry.IsEnabled() {
		log.WithField("host", cfg.SentryHost).Info("Error reporting enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	db.SetMetrics(m)
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	store, err := dedup.Open(cfg.DedupBackend, cfg.BadgerPath(), cfg.DedupWindow)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("dedup store: %w", err)
	}
	log.WithField("backend", cfg.DedupBackend).WithField("window", cfg.DedupWindow).Info("Idempotency store ready")

	defs, err := config.LoadCommands(cfg.CommandsFile)
	if err != nil {
		_ = store.Close()
		_ = db.Close()
		return nil, fmt.Errorf("command definitions: %w", err)
	}

	scraperClient := scraper.NewClient(scraper.Options{
		Timeout:           cfg.LookupTimeout,
		RequestsPerSecond: cfg.OutboundRPS,
		MaxRetries:        cfg.LookupMaxRetries,
		InitialDelay:      config.LookupRetryInitial,
	})

	tables, err := BuildTables(defs, Deps{
		DB:            db,
		Fetcher:       scraperClient,
		LookupBaseURL: cfg.LookupBaseURL,
		Metrics:       m,
		Logger:        log,
	})
	if err != nil {
		_ = store.Close()
		_ = db.Close()
		return nil, err
	}
	log.WithField("commands", tables.Registry.Len()).
		WithField("events", tables.Events.Types()).
		Info("Command tables built")

	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "user",
		Burst:         cfg.UserRateBurst,
		RefillRate:    cfg.UserRatePerSec,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	dispatcher := bot.NewDispatcher(bot.DispatcherConfig{
		Registry:   tables.Registry,
		Router:     tables.Router,
		Events:     tables.Events,
		Sessions:   bot.NewSessionStore(cfg.SessionTTL, m),
		Authorizer: storage.NewAuthorizer(db, cfg.AdminUserIDs),
		Deduper:    store,
		Limiter:    userLimiter,
		Logger:     log,
		Metrics:    m,
		Middlewares: []bot.Middleware{
			bot.LoggingMiddleware(log),
			bot.MetricsMiddleware(m),
		},
		Timeout:   cfg.DispatchTimeout,
		MaxLength: cfg.MaxMessageLength,
	})

	app := &Application{
		cfg:         cfg,
		logger:      log,
		db:          db,
		dedup:       store,
		metrics:     m,
		registry:    registry,
		tables:      tables,
		dispatcher:  dispatcher,
		userLimiter: userLimiter,
	}

	if cfg.SlackEnabled() {
		app.slackClient = slack.New(cfg.SlackBotToken)
		app.slack = webhook.NewSlackHandler(webhook.SlackConfig{
			SigningSecret: cfg.SlackSigningSecret,
			Client:        app.slackClient,
			Dispatcher:    dispatcher,
			Logger:        log,
			Metrics:       m,
		})
	}
	if cfg.LineEnabled() {
		app.line, err = webhook.NewLineHandler(webhook.LineConfig{
			ChannelSecret: cfg.LineChannelSecret,
			ChannelToken:  cfg.LineChannelToken,
			Dispatcher:    dispatcher,
			Logger:        log,
			Metrics:       m,
		})
		if err != nil {
			app.closeResources(ctx)
			return nil, fmt.Errorf("line webhook: %w", err)
		}
	}

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func (a *Application) router() *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/healthz", a.livenessCheck)
	router.HEAD("/healthz", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	if a.slack != nil {
		router.POST("/slack/events", a.slack.HandleEvents)
		router.POST("/slack/interactions", a.slack.HandleInteractions)
	}
	if a.line != nil {
		router.POST("/line/callback", a.line.Handle)
	}
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"commands": a.tables.Registry.Len(),
		"sessions": a.dispatcher.Sessions().Len(),
		"transports": gin.H{
			"slack": a.slack != nil,
			"line":  a.line != nil,
		},
	})
}

// Run serves HTTP and runs the background jobs until ctx is canceled or
// SIGINT/SIGTERM arrives, then shuts down gracefully.
//
// Shutdown order: stop accepting requests, wait for in-flight webhook
// processing, then close the stores the handlers write to.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.sweepLoop(gctx, "sessions", config.SessionSweepInterval, a.dispatcher.Sessions().Sweep)
		return nil
	})
	g.Go(func() error {
		a.sweepLoop(gctx, "dedup", config.DedupSweepInterval, a.dedup.Sweep)
		return nil
	})
	if a.slackClient != nil {
		g.Go(func() error {
			a.resolveBotUserID(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutdown requested")
		return a.shutdownHTTP()
	})

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	a.closeResources(closeCtx)
	return err
}

// sweepLoop calls sweep every interval until ctx is done.
func (a *Application) sweepLoop(ctx context.Context, name string, interval time.Duration, sweep func() int) {
	log := a.logger.WithField("job", name)
	log.Debug("Sweep job started")
	defer log.Debug("Sweep job stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if n := sweep(); n > 0 {
				log.WithField("removed", n).
					WithField("duration_ms", time.Since(start).Milliseconds()).
					Debug("Sweep completed")
			}
		}
	}
}

// resolveBotUserID asks Slack who the bot is so mentions of it can be
// stripped before matching.
func (a *Application) resolveBotUserID(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, config.ReplyDelivery)
	defer cancel()

	resp, err := a.slackClient.AuthTestContext(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Slack auth test failed; bot mentions will not be stripped")
		return
	}
	a.dispatcher.SetBotUserID(resp.UserID)
	a.logger.WithField("bot_user_id", resp.UserID).WithField("team", resp.Team).Info("Slack bot identified")
}

// shutdownHTTP stops the server and waits for webhook processing.
func (a *Application) shutdownHTTP() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if a.slack != nil {
		if err := a.slack.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("Slack handler shutdown timeout")
		}
	}
	if a.line != nil {
		if err := a.line.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("LINE handler shutdown timeout")
		}
	}
	return nil
}

// closeResources releases stores and flushes remote sinks.
func (a *Application) closeResources(ctx context.Context) {
	a.logger.Info("Closing resources...")

	if err := a.dedup.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "dedup").Error("Component close error")
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	a.userLimiter.Stop()

	if sentry.IsEnabled() && !sentry.Flush(2*time.Second) {
		a.logger.Warn("Error reports not fully flushed")
	}
	if err := a.logger.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID != "" {
			ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()

		status := c.Writer.Status()
		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP())
		if requestID != "" {
			entry = entry.WithRequestID(requestID)
		}

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status == http.StatusNotFound:
			entry.Debug("HTTP request not found")
		case status >= 400:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
