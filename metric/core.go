package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the middleware-level metrics (not application-specific)
type Metrics struct {
	// Publish pipeline
	MessagesPublished *prometheus.CounterVec
	PublishRetries    *prometheus.CounterVec
	PublishDuration   *prometheus.HistogramVec

	// Take pipeline
	MessagesTaken    *prometheus.CounterVec
	TakeShortBuffers prometheus.Counter
	FilterRejects    *prometheus.CounterVec

	// Wait scheduling
	WaitWakeups *prometheus.CounterVec

	// Graph and fallback state
	GraphVersion  prometheus.Gauge
	EndpointCount *prometheus.GaugeVec
	FallbackDepth *prometheus.GaugeVec

	// Services
	ServiceExchanges *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all middleware metrics
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ddsbridge",
				Subsystem: "publish",
				Name:      "messages_total",
				Help:      "Total number of messages published",
			},
			[]string{"topic", "path"},
		),

		PublishRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ddsbridge",
				Subsystem: "publish",
				Name:      "retries_total",
				Help:      "Total number of in-call publish retries against a full queue",
			},
			[]string{"topic"},
		),

		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ddsbridge",
				Subsystem: "publish",
				Name:      "duration_seconds",
				Help:      "Publish call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"topic"},
		),

		MessagesTaken: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ddsbridge",
				Subsystem: "take",
				Name:      "messages_total",
				Help:      "Total number of messages taken",
			},
			[]string{"topic", "source"},
		),

		TakeShortBuffers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ddsbridge",
				Subsystem: "take",
				Name:      "short_buffers_total",
				Help:      "Total number of buffer-grow round trips during take",
			},
		),

		FilterRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ddsbridge",
				Subsystem: "take",
				Name:      "filter_rejects_total",
				Help:      "Total number of samples rejected by a content filter",
			},
			[]string{"topic"},
		),

		WaitWakeups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ddsbridge",
				Subsystem: "wait",
				Name:      "wakeups_total",
				Help:      "Total number of wait-set wakeups",
			},
			[]string{"reason"},
		),

		GraphVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ddsbridge",
				Subsystem: "graph",
				Name:      "version",
				Help:      "Current graph cache version",
			},
		),

		EndpointCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ddsbridge",
				Subsystem: "graph",
				Name:      "endpoints",
				Help:      "Number of live endpoints by kind",
			},
			[]string{"kind"},
		),

		FallbackDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ddsbridge",
				Subsystem: "fallback",
				Name:      "depth",
				Help:      "Queued samples per fallback topic",
			},
			[]string{"topic"},
		),

		ServiceExchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ddsbridge",
				Subsystem: "service",
				Name:      "exchanges_total",
				Help:      "Total number of service requests and responses",
			},
			[]string{"service", "direction"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ddsbridge",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),
	}
}

// RecordPublish increments the published message counter
func (c *Metrics) RecordPublish(topic, path string) {
	c.MessagesPublished.WithLabelValues(topic, path).Inc()
}

// RecordPublishRetry increments the in-call retry counter
func (c *Metrics) RecordPublishRetry(topic string) {
	c.PublishRetries.WithLabelValues(topic).Inc()
}

// RecordPublishDuration records one publish call duration
func (c *Metrics) RecordPublishDuration(topic string, duration time.Duration) {
	c.PublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordTake increments the taken message counter
func (c *Metrics) RecordTake(topic, source string) {
	c.MessagesTaken.WithLabelValues(topic, source).Inc()
}

// RecordShortBuffer increments the buffer-grow counter
func (c *Metrics) RecordShortBuffer() {
	c.TakeShortBuffers.Inc()
}

// RecordFilterReject increments the content-filter rejection counter
func (c *Metrics) RecordFilterReject(topic string) {
	c.FilterRejects.WithLabelValues(topic).Inc()
}

// RecordWakeup increments the wait wakeup counter
func (c *Metrics) RecordWakeup(reason string) {
	c.WaitWakeups.WithLabelValues(reason).Inc()
}

// RecordGraphVersion updates the graph version gauge
func (c *Metrics) RecordGraphVersion(version uint64) {
	c.GraphVersion.Set(float64(version))
}

// RecordEndpointCount updates the endpoint gauge for one kind
func (c *Metrics) RecordEndpointCount(kind string, count int) {
	c.EndpointCount.WithLabelValues(kind).Set(float64(count))
}

// RecordFallbackDepth updates the fallback depth gauge for topic
func (c *Metrics) RecordFallbackDepth(topic string, depth int) {
	c.FallbackDepth.WithLabelValues(topic).Set(float64(depth))
}

// RecordServiceExchange increments the service exchange counter
func (c *Metrics) RecordServiceExchange(service, direction string) {
	c.ServiceExchanges.WithLabelValues(service, direction).Inc()
}

// RecordError increments the error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
