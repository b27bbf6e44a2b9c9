package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubik_bot_messages_received_total",
		Help: "Total number of messages received",
	}, []string{"chat_type"})

	messageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubik_bot_message_outcomes_total",
		Help: "Message outcomes by kind (answered, disabled, rate_limited, quota_exceeded)",
	}, []string{"outcome", "tier"})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubik_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cubik_bot_ai_request_duration_seconds",
		Help:    "Duration of backend inference requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubik_bot_ai_requests_total",
		Help: "Total number of backend inference requests",
	}, []string{"model", "status"})

	historyOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubik_bot_history_operations_total",
		Help: "Durable history operations by result",
	}, []string{"operation", "status"})

	documentsUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cubik_bot_documents_uploaded_total",
		Help: "Document uploads by result",
	}, []string{"status"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cubik_bot_active_sessions",
		Help: "Number of user sessions held in memory",
	})
)

// Metrics records bot-level prometheus metrics.
type Metrics struct{}

// NewMetrics creates a metrics recorder.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived increments the received-messages counter.
func (m *Metrics) RecordMessageReceived(chatType string) {
	messagesReceived.WithLabelValues(chatType).Inc()
}

// RecordOutcome increments the per-outcome counter.
func (m *Metrics) RecordOutcome(outcome, tier string) {
	messageOutcomes.WithLabelValues(outcome, tier).Inc()
}

// RecordCommandExecuted increments the per-command counter.
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordAIRequest records one backend call.
func (m *Metrics) RecordAIRequest(model, status string, duration time.Duration) {
	aiRequestsTotal.WithLabelValues(model, status).Inc()
	aiRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
}

// RecordHistoryOperation records one durable-log operation.
func (m *Metrics) RecordHistoryOperation(operation, status string) {
	historyOperations.WithLabelValues(operation, status).Inc()
}

// RecordDocumentUpload records one document upload attempt.
func (m *Metrics) RecordDocumentUpload(status string) {
	documentsUploaded.WithLabelValues(status).Inc()
}

// SetActiveSessions updates the in-memory session gauge.
func (m *Metrics) SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// StartMetricsServer serves the prometheus endpoint on its own port.
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
