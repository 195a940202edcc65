package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiPromptTokens,
		aiStreamDeltas,
		aiStreamLatencyMs,
		aiFirstDeltaMs,
		aiStreamFailures,
	)
}

var (
	aiPromptTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_prompt_tokens",
			Help: "Sum of estimated prompt tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiStreamDeltas = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_deltas",
			Help: "Count of content deltas received per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiStreamLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_stream_latency_ms",
			Help:    "End-to-end stream duration distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"provider", "model", "success"},
	)

	aiFirstDeltaMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_first_delta_ms",
			Help:    "Time to first content delta in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"provider", "model"},
	)

	aiStreamFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_failures",
			Help: "Count of streams converted to synthetic error messages.",
		},
		[]string{"provider", "model"},
	)
)

func ObservePromptTokens(provider, model string, tokens int) {
	aiPromptTokens.WithLabelValues(norm(provider), norm(model)).Add(float64(tokens))
}

func ObserveStreamDelta(provider, model string) {
	aiStreamDeltas.WithLabelValues(norm(provider), norm(model)).Inc()
}

func ObserveStream(provider, model string, latencyMs int, success bool) {
	aiStreamLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
	if !success {
		aiStreamFailures.WithLabelValues(norm(provider), norm(model)).Inc()
	}
}

func ObserveFirstDelta(provider, model string, ms int) {
	aiFirstDeltaMs.WithLabelValues(norm(provider), norm(model)).Observe(float64(ms))
}
