package kafka

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// clientMetrics is shared by producers and consumers registered on the same
// registry.
type clientMetrics struct {
	published  *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	publishDur *prometheus.HistogramVec
	consumed   *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
	handleDur  *prometheus.HistogramVec
	dlq        *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &clientMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glasslens_kafka_producer_messages_total",
			Help: "Messages published to Kafka",
		}, []string{"topic", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glasslens_kafka_producer_bytes_total",
			Help: "Payload bytes published",
		}, []string{"topic"}),
		publishDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glasslens_kafka_producer_publish_seconds",
			Help:    "Publish latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glasslens_kafka_consumer_messages_total",
			Help: "Messages handled by the consumer",
		}, []string{"topic", "result"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "glasslens_kafka_consumer_queue_depth",
			Help: "Messages waiting in the consumer queue",
		}, []string{"topic"}),
		handleDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glasslens_kafka_consumer_handle_seconds",
			Help:    "Handling time per message including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		dlq: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glasslens_kafka_consumer_dlq_total",
			Help: "Messages routed to the dead letter topic",
		}, []string{"topic"}),
	}
	m.published = register(reg, m.published)
	m.bytes = register(reg, m.bytes)
	m.publishDur = register(reg, m.publishDur)
	m.consumed = register(reg, m.consumed)
	m.queueDepth = register(reg, m.queueDepth)
	m.handleDur = register(reg, m.handleDur)
	m.dlq = register(reg, m.dlq)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *clientMetrics) observePublish(topic string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(topic, result).Add(float64(count))
	m.bytes.WithLabelValues(topic).Add(float64(bytes))
	m.publishDur.WithLabelValues(topic).Observe(dur.Seconds())
}

func (m *clientMetrics) observeHandle(topic string, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.consumed.WithLabelValues(topic, result).Inc()
	m.handleDur.WithLabelValues(topic).Observe(dur.Seconds())
}
