package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"formarter/compliance/pkg/config"
)

// HTTPMetrics tracks API requests. Routes are the registered patterns,
// not raw paths, so document and session ids never become label values.
type HTTPMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "API requests by route and status code",
			},
			[]string{"route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "API request duration by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.duration)
	return hm
}

// Record records one request.
func (hm *HTTPMetrics) Record(route string, code int, duration time.Duration) {
	hm.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	hm.duration.WithLabelValues(route).Observe(duration.Seconds())
}
