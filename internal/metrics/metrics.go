// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	// Dispatch
	DispatchTotal           *prometheus.CounterVec
	DispatchDurationSeconds *prometheus.HistogramVec
	HandlerFailuresTotal    *prometheus.CounterVec
	HandlerDurationSeconds  *prometheus.HistogramVec

	// Idempotency and flow state
	DedupTotal     *prometheus.CounterVec
	SessionsActive prometheus.Gauge

	// Transports
	WebhookRequestsTotal *prometheus.CounterVec
	RepliesTotal         *prometheus.CounterVec

	// Rate limiting
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterActive  *prometheus.GaugeVec

	// Storage
	StoreTransactionsTotal *prometheus.CounterVec

	// Lookup
	LookupRequestsTotal   *prometheus.CounterVec
	LookupDurationSeconds prometheus.Histogram
	LookupDedupTotal      prometheus.Counter
}

// New creates all metrics and registers them with registry.
func New(registry *prometheus.Registry) *Metrics {
	f := promauto.With(registry)
	return &Metrics{
		DispatchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_dispatch_total",
				Help: "Dispatches by kind and terminal state",
			},
			[]string{"kind", "state"}, // kind: text, action, event
		),
		DispatchDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatbot_dispatch_duration_seconds",
				Help:    "Dispatch duration by kind",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
			},
			[]string{"kind"},
		),
		HandlerFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_handler_failures_total",
				Help: "Handler failures by command and failure class",
			},
			[]string{"command", "class"},
		),
		HandlerDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatbot_handler_duration_seconds",
				Help:    "Handler execution time by command",
				Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 2, 10},
			},
			[]string{"command"},
		),
		DedupTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_dedup_total",
				Help: "Idempotency checks by result",
			},
			[]string{"result"}, // claimed, duplicate, error
		),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "chatbot_sessions_active",
			Help: "Multi-step flow entries currently held in memory",
		}),
		WebhookRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_webhook_requests_total",
				Help: "Inbound webhook requests by platform and status",
			},
			[]string{"platform", "status"},
		),
		RepliesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_replies_total",
				Help: "Outbound replies by platform and status",
			},
			[]string{"platform", "status"},
		),
		RateLimiterDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_ratelimit_dropped_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		RateLimiterActive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chatbot_ratelimit_active_keys",
				Help: "Keys currently tracked by a keyed rate limiter",
			},
			[]string{"limiter"},
		),
		StoreTransactionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_store_transactions_total",
				Help: "Units of work against the relational store by outcome",
			},
			[]string{"result"}, // commit, rollback
		),
		LookupRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbot_lookup_requests_total",
				Help: "Outbound page fetches by status",
			},
			[]string{"status"}, // success, error, not_found
		),
		LookupDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatbot_lookup_duration_seconds",
			Help:    "Outbound page fetch duration including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),
		LookupDedupTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "chatbot_lookup_dedup_total",
			Help: "Lookups served by joining an in-flight fetch",
		}),
	}
}

// RecordDispatch records one finished dispatch.
func (m *Metrics) RecordDispatch(kind, state string, seconds float64) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(kind, state).Inc()
	m.DispatchDurationSeconds.WithLabelValues(kind).Observe(seconds)
}

// RecordHandlerFailure counts a failed handler invocation.
func (m *Metrics) RecordHandlerFailure(command, class string) {
	if m == nil {
		return
	}
	m.HandlerFailuresTotal.WithLabelValues(command, class).Inc()
}

// RecordHandler records how long one handler ran.
func (m *Metrics) RecordHandler(command string, seconds float64) {
	if m == nil {
		return
	}
	m.HandlerDurationSeconds.WithLabelValues(command).Observe(seconds)
}

// RecordDedup counts an idempotency check.
func (m *Metrics) RecordDedup(result string) {
	if m == nil {
		return
	}
	m.DedupTotal.WithLabelValues(result).Inc()
}

// SetSessionsActive sets the flow state gauge.
func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RecordWebhook counts an inbound webhook request.
func (m *Metrics) RecordWebhook(platform, status string) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(platform, status).Inc()
}

// RecordReply counts an outbound reply.
func (m *Metrics) RecordReply(platform, status string) {
	if m == nil {
		return
	}
	m.RepliesTotal.WithLabelValues(platform, status).Inc()
}

// RecordRateLimiterDrop counts a request rejected by limiter.
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterActive sets the number of keys tracked by limiter.
func (m *Metrics) SetRateLimiterActive(limiter string, n int) {
	if m == nil {
		return
	}
	m.RateLimiterActive.WithLabelValues(limiter).Set(float64(n))
}

// RecordStoreTransaction counts a committed or rolled back unit of work.
func (m *Metrics) RecordStoreTransaction(result string) {
	if m == nil {
		return
	}
	m.StoreTransactionsTotal.WithLabelValues(result).Inc()
}

// RecordLookup records an outbound fetch.
func (m *Metrics) RecordLookup(status string, seconds float64) {
	if m == nil {
		return
	}
	m.LookupRequestsTotal.WithLabelValues(status).Inc()
	m.LookupDurationSeconds.Observe(seconds)
}

// RecordLookupDedup counts a lookup that joined an in-flight fetch.
func (m *Metrics) RecordLookupDedup() {
	if m == nil {
		return
	}
	m.LookupDedupTotal.Inc()
}
