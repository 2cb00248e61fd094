package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics namespace for all diagnostics-mcp metrics.
const metricsNamespace = "diagnostics_mcp"

// Tool call metrics.
var (
	// ToolCallsTotal counts the total number of tool calls by tool name and status.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls",
		},
		[]string{"tool", "status"},
	)

	// ToolCallDuration measures the duration of tool calls in seconds.
	ToolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of tool calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"tool"},
	)
)

// Domain metrics.
var (
	// ScenarioSearchesTotal counts scenario searches by whether they matched.
	ScenarioSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scenario_searches_total",
			Help:      "Total number of scenario searches",
		},
		[]string{"outcome"},
	)

	// ValidationFailuresTotal counts placeholder validation failures by issue kind.
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "validation_failures_total",
			Help:      "Total number of placeholder validation failures",
		},
		[]string{"issue"},
	)

	// ActiveSessions tracks the number of live conversation sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ToolCallsTotal,
		ToolCallDuration,
		ScenarioSearchesTotal,
		ValidationFailuresTotal,
		ActiveSessions,
	)
}
