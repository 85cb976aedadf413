package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal        *prometheus.CounterVec
	solanaRPCCallDuration      *prometheus.HistogramVec
	solanaRPCRateLimitHits     *prometheus.CounterVec
	solanaRPCRetries           *prometheus.CounterVec
	solanaRPCSignaturesPerCall *prometheus.HistogramVec

	// Analysis Metrics
	analysesTotal      *prometheus.CounterVec
	riskScores         *prometheus.HistogramVec
	patternsDetected   *prometheus.CounterVec
	alertsPublished    *prometheus.CounterVec
	commentaryRequests *prometheus.CounterVec
	tweetsPosted       *prometheus.CounterVec

	// Workflow Metrics
	analyzeWorkflowDuration        *prometheus.HistogramVec
	analyzeWorkflowExecutionsTotal *prometheus.CounterVec
	analyzeActivityDuration        *prometheus.HistogramVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections *prometheus.GaugeVec
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		solanaRPCRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_retries_total",
				Help: "Total number of Solana RPC retry attempts",
			},
			[]string{"method", "reason"},
		),
		solanaRPCSignaturesPerCall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_signatures_per_call",
				Help:    "Number of signatures fetched per GetSignaturesForAddress call",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"endpoint"},
		),

		// Analysis Metrics
		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_analyses_total",
				Help: "Total number of token risk analyses by status",
			},
			[]string{"status"},
		),
		riskScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "token_risk_score",
				Help:    "Distribution of computed risk scores",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"risk_level"},
		),
		patternsDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rug_patterns_detected_total",
				Help: "Total number of rug patterns detected by pattern name",
			},
			[]string{"pattern"},
		),
		alertsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_published_total",
				Help: "Total number of high-risk alerts published",
			},
			[]string{"risk_level"},
		),
		commentaryRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commentary_requests_total",
				Help: "Total number of AI commentary requests by status",
			},
			[]string{"status"},
		),
		tweetsPosted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweets_posted_total",
				Help: "Total number of alert tweets by status",
			},
			[]string{"status"},
		),

		// Workflow Metrics
		analyzeWorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analyze_workflow_duration_seconds",
				Help:    "Duration of analyze workflow execution in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"mint", "status"},
		),
		analyzeWorkflowExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyze_workflow_executions_total",
				Help: "Total number of analyze workflow executions",
			},
			[]string{"mint", "status"},
		),
		analyzeActivityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analyze_activity_duration_seconds",
				Help:    "Duration of analyze workflow activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"activity", "mint"},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
			[]string{"mint"},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"mint", "event_type"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.solanaRPCRetries.WithLabelValues(method, reason).Inc()
}

// RecordRPCSignaturesPerCall records the number of signatures fetched.
func (m *Metrics) RecordRPCSignaturesPerCall(endpoint string, count float64) {
	m.solanaRPCSignaturesPerCall.WithLabelValues(endpoint).Observe(count)
}

// Analysis metric helpers

// RecordAnalysis records a completed (or failed) token analysis.
func (m *Metrics) RecordAnalysis(status string) {
	m.analysesTotal.WithLabelValues(status).Inc()
}

// RecordRiskScore records a computed risk score.
func (m *Metrics) RecordRiskScore(riskLevel string, score float64) {
	m.riskScores.WithLabelValues(riskLevel).Observe(score)
}

// RecordPatternDetected records a detected rug pattern.
func (m *Metrics) RecordPatternDetected(pattern string) {
	m.patternsDetected.WithLabelValues(pattern).Inc()
}

// RecordAlertPublished records a published alert.
func (m *Metrics) RecordAlertPublished(riskLevel string) {
	m.alertsPublished.WithLabelValues(riskLevel).Inc()
}

// RecordCommentaryRequest records an AI commentary attempt.
func (m *Metrics) RecordCommentaryRequest(status string) {
	m.commentaryRequests.WithLabelValues(status).Inc()
}

// RecordTweet records an alert tweet attempt.
func (m *Metrics) RecordTweet(status string) {
	m.tweetsPosted.WithLabelValues(status).Inc()
}

// Workflow metric helpers

// RecordWorkflowDuration records workflow execution duration.
func (m *Metrics) RecordWorkflowDuration(mint, status string, duration float64) {
	m.analyzeWorkflowDuration.WithLabelValues(mint, status).Observe(duration)
	m.analyzeWorkflowExecutionsTotal.WithLabelValues(mint, status).Inc()
}

// RecordActivityDuration records activity execution duration.
func (m *Metrics) RecordActivityDuration(activity, mint string, duration float64) {
	m.analyzeActivityDuration.WithLabelValues(activity, mint).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(mint string, delta float64) {
	m.sseActiveConnections.WithLabelValues(mint).Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(mint, eventType string) {
	m.sseEventsSent.WithLabelValues(mint, eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
