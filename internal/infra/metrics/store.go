package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		storeOps,
		storeSessionsEvicted,
		storeMessagesTrimmed,
		storeImagesDropped,
	)
}

var (
	storeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_store_ops",
			Help: "Session store operations per op/outcome.",
		},
		[]string{"op", "outcome"},
	)

	storeSessionsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_store_sessions_evicted",
			Help: "Sessions evicted by the max-session retention rule.",
		},
	)

	storeMessagesTrimmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_store_messages_trimmed",
			Help: "Messages removed by the per-session trim rule.",
		},
	)

	storeImagesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_store_images_dropped",
			Help: "Image parts dropped by the byte-budget rule.",
		},
	)
)

func ObserveStoreOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOps.WithLabelValues(op, outcome).Inc()
}

func ObserveRetention(sessionsEvicted, messagesTrimmed, imagesDropped int) {
	if sessionsEvicted > 0 {
		storeSessionsEvicted.Add(float64(sessionsEvicted))
	}
	if messagesTrimmed > 0 {
		storeMessagesTrimmed.Add(float64(messagesTrimmed))
	}
	if imagesDropped > 0 {
		storeImagesDropped.Add(float64(imagesDropped))
	}
}
