package config

//nolint:gosec // Environment variable keys, not credentials.
const (
	// Server
	EnvPort            = "CHATBOT_PORT"
	EnvLogLevel        = "CHATBOT_LOG_LEVEL"
	EnvShutdownTimeout = "CHATBOT_SHUTDOWN_TIMEOUT"

	// Data
	EnvDataDir      = "CHATBOT_DATA_DIR"
	EnvDedupBackend = "CHATBOT_DEDUP_BACKEND"
	EnvDedupWindow  = "CHATBOT_DEDUP_WINDOW"

	// Dispatch
	EnvDispatchTimeout  = "CHATBOT_DISPATCH_TIMEOUT"
	EnvSessionTTL       = "CHATBOT_SESSION_TTL"
	EnvAdminUserIDs     = "CHATBOT_ADMIN_USER_IDS"
	EnvCommandsFile     = "CHATBOT_COMMANDS_FILE"
	EnvMaxMessageLength = "CHATBOT_MAX_MESSAGE_LENGTH"

	// Rate limits
	EnvUserRateBurst  = "CHATBOT_USER_RATE_LIMIT_BURST"
	EnvUserRatePerSec = "CHATBOT_USER_RATE_LIMIT_PER_SEC"
	EnvOutboundRPS    = "CHATBOT_OUTBOUND_RPS"

	// Slack
	EnvSlackBotToken      = "CHATBOT_SLACK_BOT_TOKEN"
	EnvSlackSigningSecret = "CHATBOT_SLACK_SIGNING_SECRET"

	// LINE
	EnvLineChannelAccessToken = "CHATBOT_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "CHATBOT_LINE_CHANNEL_SECRET"

	// Lookup
	EnvLookupBaseURL    = "CHATBOT_LOOKUP_BASE_URL"
	EnvLookupTimeout    = "CHATBOT_LOOKUP_TIMEOUT"
	EnvLookupMaxRetries = "CHATBOT_LOOKUP_MAX_RETRIES"

	// Observability
	EnvMetricsUsername     = "CHATBOT_METRICS_USERNAME"
	EnvMetricsPassword     = "CHATBOT_METRICS_PASSWORD"
	EnvBetterStackToken    = "CHATBOT_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CHATBOT_BETTERSTACK_ENDPOINT"
	EnvSentryToken         = "CHATBOT_SENTRY_TOKEN"
	EnvSentryHost          = "CHATBOT_SENTRY_HOST"
	EnvSentryEnvironment   = "CHATBOT_SENTRY_ENVIRONMENT"
)
