// Package metrics records MaIS API client activity in Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	NotFoundTotal    *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
	WatchChanges     prometheus.Counter
}

// New registers the client metrics on reg. A nil reg means the global
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mais_person_requests_total",
			Help: "Total number of MaIS Person API requests by endpoint and HTTP status",
		}, []string{"endpoint", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mais_person_request_duration_seconds",
			Help:    "MaIS Person API request latency, including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		NotFoundTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mais_person_not_found_total",
			Help: "Lookups that returned 404 for an unknown sunetid",
		}, []string{"endpoint"}),
		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mais_person_rate_limited_total",
			Help: "Responses rejected with 429 Too Many Requests",
		}),
		WatchChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "mais_person_watch_changes_total",
			Help: "Changes detected by the watch scheduler",
		}),
	}
}

// ObserveRequest records one completed request. status is 0 when the request
// failed before a response arrived. Safe to call on a nil *Metrics.
func (m *Metrics) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(endpoint, label).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementNotFound(endpoint string) {
	if m == nil {
		return
	}
	m.NotFoundTotal.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

func (m *Metrics) IncrementWatchChanges() {
	if m == nil {
		return
	}
	m.WatchChanges.Inc()
}
