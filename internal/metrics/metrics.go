// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hassist",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hassist",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
		},
		[]string{"method", "route"},
	)

	// LLM calls
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hassist",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total chat completion requests by outcome",
		},
		[]string{"entry", "outcome"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hassist",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Chat completion latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"entry"},
	)

	// Suggestions
	SuggestionsExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hassist",
			Subsystem: "suggestions",
			Name:      "executed_total",
			Help:      "Suggestion executions by type and outcome",
		},
		[]string{"entry", "type", "outcome"},
	)

	// Coordinator
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hassist",
			Subsystem: "coordinator",
			Name:      "refreshes_total",
			Help:      "Status refreshes by outcome",
		},
		[]string{"entry", "outcome"},
	)

	Conversations = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hassist",
			Subsystem: "session",
			Name:      "conversations",
			Help:      "Conversation turns currently held in memory",
		},
		[]string{"entry"},
	)

	Suggestions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hassist",
			Subsystem: "session",
			Name:      "suggestions",
			Help:      "Suggestions currently held in memory",
		},
		[]string{"entry"},
	)
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// ObserveLLM records one chat completion call.
func ObserveLLM(entry, outcome string, elapsed time.Duration) {
	LLMRequestsTotal.WithLabelValues(entry, outcome).Inc()
	LLMDuration.WithLabelValues(entry).Observe(elapsed.Seconds())
}

// ForgetEntry drops the series of an unloaded entry.
func ForgetEntry(entry string) {
	Conversations.DeleteLabelValues(entry)
	Suggestions.DeleteLabelValues(entry)
}
