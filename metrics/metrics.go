// Package metrics exposes Prometheus instrumentation for the tool
// dispatcher, the native job queue, and the MCP SSE transport (spec §3's
// ToolCallMetrics, §4.10's queue depth). Grounded on the teacher's
// tracing.Metrics (promauto-registered Vec metrics, Record* method
// pattern), generalized from semantic-action/workflow label sets to tool
// names and workspace ids.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the gateway registers.
type Metrics struct {
	ToolCallDuration *prometheus.HistogramVec
	ToolCallTotal    *prometheus.CounterVec
	ToolCallErrors   *prometheus.CounterVec

	QueueDepth     *prometheus.GaugeVec
	JobsInFlight   *prometheus.GaugeVec
	JobRetries     *prometheus.CounterVec
	JobDeadLetters *prometheus.CounterVec

	SSEConnections prometheus.Gauge
	TraceLogBytes  prometheus.Gauge
	TraceLogEntries prometheus.Gauge
}

// New creates and registers all collectors under namespace (default
// "cubeforge_gateway").
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cubeforge_gateway"
	}

	return &Metrics{
		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of a dispatched tool call in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"tool", "status"},
		),
		ToolCallTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls dispatched",
			},
			[]string{"tool", "status"},
		),
		ToolCallErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_call_errors_total",
				Help:      "Total number of tool call errors by error code",
			},
			[]string{"tool", "code"},
		),

		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "job_queue_depth",
				Help:      "Number of queued (not yet running) native jobs",
			},
			[]string{"workspace_id"},
		),
		JobsInFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_in_flight",
				Help:      "Number of native jobs currently leased/running",
			},
			[]string{"workspace_id"},
		),
		JobRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_retries_total",
				Help:      "Total number of native job retry reschedules",
			},
			[]string{"kind"},
		),
		JobDeadLetters: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_dead_letters_total",
				Help:      "Total number of native jobs dead-lettered after exhausting retries",
			},
			[]string{"kind"},
		),

		SSEConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sse_connections",
				Help:      "Number of currently open SSE connections",
			},
		),
		TraceLogBytes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "trace_log_bytes",
				Help:      "Current size in bytes of the in-memory trace ring",
			},
		),
		TraceLogEntries: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "trace_log_entries",
				Help:      "Current number of entries retained in the trace ring",
			},
		),
	}
}

// RecordToolCall records the outcome of one dispatched tool call.
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	m.ToolCallDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
	m.ToolCallTotal.WithLabelValues(tool, status).Inc()
}

// RecordToolCallError records the error code of a failed tool call.
func (m *Metrics) RecordToolCallError(tool, code string) {
	m.ToolCallErrors.WithLabelValues(tool, code).Inc()
}

// SetQueueDepth updates the queued-job gauge for a workspace.
func (m *Metrics) SetQueueDepth(workspaceID string, depth int64) {
	m.QueueDepth.WithLabelValues(workspaceID).Set(float64(depth))
}

// RecordJobRetry increments the retry counter for a job kind.
func (m *Metrics) RecordJobRetry(kind string) {
	m.JobRetries.WithLabelValues(kind).Inc()
}

// RecordJobDeadLetter increments the dead-letter counter for a job kind.
func (m *Metrics) RecordJobDeadLetter(kind string) {
	m.JobDeadLetters.WithLabelValues(kind).Inc()
}

// SetTraceLogStats updates the trace ring gauges.
func (m *Metrics) SetTraceLogStats(entries, bytes int) {
	m.TraceLogEntries.Set(float64(entries))
	m.TraceLogBytes.Set(float64(bytes))
}
