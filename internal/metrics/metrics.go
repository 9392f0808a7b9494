// Package metrics exposes Prometheus counters for AI usage and command
// handling. Collectors are registered once via MustRegister.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	aiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Count of AI completion requests per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_errors_total",
			Help: "Count of failed AI completion requests per provider.",
		},
		[]string{"provider"},
	)

	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_latency_ms",
			Help:    "AI request latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"provider", "success"},
	)

	commandsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_handled_total",
			Help: "Count of handled bot commands per command name.",
		},
		[]string{"command"},
	)
)

// MustRegister registers all collectors with Prometheus exactly once.
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			aiRequests,
			aiErrors,
			aiTokensTotal,
			aiLatencyMs,
			commandsHandled,
		)
	})
}

// ObserveAIRequest records one AI completion attempt.
func ObserveAIRequest(provider, model string, tokens int, latencyMs int64, success bool) {
	aiRequests.WithLabelValues(provider, model).Inc()
	aiTokensTotal.WithLabelValues(provider, model).Add(float64(tokens))
	aiLatencyMs.WithLabelValues(provider, strconv.FormatBool(success)).Observe(float64(latencyMs))
	if !success {
		aiErrors.WithLabelValues(provider).Inc()
	}
}

// CommandHandled increments the counter for a bot command.
func CommandHandled(command string) {
	commandsHandled.WithLabelValues(command).Inc()
}
