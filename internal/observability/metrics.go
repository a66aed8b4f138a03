package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the server.
// Uses a custom registry — no global state. All record helpers are nil-safe
// so callers can pass a nil *Metrics when observability is disabled.
type Metrics struct {
	Registry *prometheus.Registry

	// Tool invocation metrics.
	ToolInvocationsTotal *prometheus.CounterVec
	ToolDuration         *prometheus.HistogramVec

	// Remote sandbox metrics.
	SandboxOperationsTotal   *prometheus.CounterVec
	SessionProvisionDuration prometheus.Histogram

	// Transfer policy metrics.
	TransferDecisionsTotal *prometheus.CounterVec
	TransferBytesTotal     *prometheus.CounterVec
}

// NewMetrics creates a Metrics collector with all metrics registered on a
// custom prometheus.Registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		ToolInvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daytona_mcp",
			Subsystem: "tools",
			Name:      "invocations_total",
			Help:      "Total tool invocations.",
		}, []string{"tool", "status"}),

		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "daytona_mcp",
			Subsystem: "tools",
			Name:      "duration_seconds",
			Help:      "Tool invocation duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"tool"}),

		SandboxOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daytona_mcp",
			Subsystem: "sandbox",
			Name:      "operations_total",
			Help:      "Total remote sandbox operations.",
		}, []string{"op", "status"}),

		SessionProvisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "daytona_mcp",
			Subsystem: "sandbox",
			Name:      "provision_duration_seconds",
			Help:      "Workspace provisioning duration in seconds, including retries.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 60, 120},
		}),

		TransferDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daytona_mcp",
			Subsystem: "transfer",
			Name:      "decisions_total",
			Help:      "Transfer policy decisions by requested strategy and chosen plan.",
		}, []string{"strategy", "plan"}),

		TransferBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daytona_mcp",
			Subsystem: "transfer",
			Name:      "bytes_total",
			Help:      "Bytes moved out of the sandbox by strategy.",
		}, []string{"strategy"}),
	}

	reg.MustRegister(
		m.ToolInvocationsTotal,
		m.ToolDuration,
		m.SandboxOperationsTotal,
		m.SessionProvisionDuration,
		m.TransferDecisionsTotal,
		m.TransferBytesTotal,
	)

	return m
}

// RecordTool records one tool invocation outcome.
func (m *Metrics) RecordTool(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolInvocationsTotal.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordSandboxOp records one remote sandbox operation outcome.
func (m *Metrics) RecordSandboxOp(op, status string) {
	if m == nil {
		return
	}
	m.SandboxOperationsTotal.WithLabelValues(op, status).Inc()
}

// ObserveProvision records the duration of a successful provisioning.
func (m *Metrics) ObserveProvision(d time.Duration) {
	if m == nil {
		return
	}
	m.SessionProvisionDuration.Observe(d.Seconds())
}

// RecordTransferDecision records one policy decision.
func (m *Metrics) RecordTransferDecision(strategy, plan string) {
	if m == nil {
		return
	}
	m.TransferDecisionsTotal.WithLabelValues(strategy, plan).Inc()
}

// AddTransferBytes records bytes moved for a strategy.
func (m *Metrics) AddTransferBytes(strategy string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TransferBytesTotal.WithLabelValues(strategy).Add(float64(n))
}
