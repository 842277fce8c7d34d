// Package metrics provides Prometheus collectors for remote storage calls.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomeRemoteError    = "remote_error"
	OutcomeDecodeError    = "decode_error"
)

// Metrics groups the collectors recorded by storage adapters.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bytesWritten    prometheus.Counter
	listedEntries   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdstore_remote_requests_total",
				Help: "Total number of remote storage requests",
			},
			[]string{"method", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sdstore_remote_request_duration_seconds",
				Help:    "Remote storage request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		bytesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sdstore_remote_bytes_written_total",
				Help: "Total bytes sent to remote storage by buffered writes",
			},
		),
		listedEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdstore_remote_listed_entries_total",
				Help: "Total number of listing entries decoded",
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.requestDuration, m.bytesWritten, m.listedEntries)
	}
	return m
}

// ObserveRequest records one remote call.
func (m *Metrics) ObserveRequest(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// AddBytesWritten records the size of a buffered write.
func (m *Metrics) AddBytesWritten(n int) {
	if m == nil {
		return
	}
	m.bytesWritten.Add(float64(n))
}

// IncListed records one decoded listing entry of the given type.
func (m *Metrics) IncListed(entryType string) {
	if m == nil {
		return
	}
	m.listedEntries.WithLabelValues(entryType).Inc()
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns collectors registered with the default Prometheus registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Handler returns an HTTP handler serving the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}
