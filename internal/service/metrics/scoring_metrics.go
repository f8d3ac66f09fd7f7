package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ScoringLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "glasslens",
			Subsystem: "scoring",
			Name:      "latency_seconds",
			Help:      "Latency of scoring API calls including retries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ScoringErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glasslens",
			Subsystem: "scoring",
			Name:      "errors_total",
			Help:      "Failed scoring API calls by endpoint",
		},
		[]string{"endpoint"},
	)

	ScoringCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glasslens",
			Subsystem: "scoring",
			Name:      "cache_total",
			Help:      "Prediction cache lookups",
		},
		[]string{"result"},
	)
)

// Register adds the scoring collectors to reg once per process.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		reg.MustRegister(ScoringLatency, ScoringErrors, ScoringCache)
	})
}
