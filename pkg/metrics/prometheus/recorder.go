// Package prometheus implements metrics.Recorder on top of Prometheus client_golang.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Suhaibinator/SWire/pkg/metrics"
)

// Recorder records SWire observations into Prometheus vectors.
type Recorder struct {
	negotiations *prometheus.CounterVec
	codecOps     *prometheus.CounterVec
	bodyBytes    *prometheus.HistogramVec
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

var _ metrics.Recorder = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them on registry.
// namespace and subsystem prefix every metric name as usual in Prometheus.
func NewRecorder(registry prometheus.Registerer, namespace, subsystem string) *Recorder {
	if registry == nil {
		panic("prometheus registry cannot be nil")
	}
	factory := promauto.With(registry)

	return &Recorder{
		negotiations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "negotiations_total",
			Help:      "Total number of body encoding negotiations",
		}, []string{"direction", "content_type", "result"}),
		codecOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "codec_operations_total",
			Help:      "Total number of body encode and decode operations",
		}, []string{"direction", "content_type", "result"}),
		bodyBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "body_size_bytes",
			Help:      "Size of encoded or decoded bodies",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{"direction", "content_type"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "endpoint_requests_total",
			Help:      "Total number of endpoint invocations",
		}, []string{"service", "endpoint", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "endpoint_duration_seconds",
			Help:      "Endpoint invocation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "endpoint"}),
	}
}

// Negotiation implements metrics.Recorder.
func (r *Recorder) Negotiation(direction metrics.Direction, contentType string, err error) {
	r.negotiations.WithLabelValues(string(direction), contentType, metrics.Outcome(err)).Inc()
}

// Codec implements metrics.Recorder.
func (r *Recorder) Codec(direction metrics.Direction, contentType string, size int, err error) {
	r.codecOps.WithLabelValues(string(direction), contentType, metrics.Outcome(err)).Inc()
	if err == nil {
		r.bodyBytes.WithLabelValues(string(direction), contentType).Observe(float64(size))
	}
}

// Endpoint implements metrics.Recorder.
func (r *Recorder) Endpoint(service, endpoint string, statusCode int, duration time.Duration) {
	r.requests.WithLabelValues(service, endpoint, strconv.Itoa(statusCode)).Inc()
	r.latency.WithLabelValues(service, endpoint).Observe(duration.Seconds())
}
