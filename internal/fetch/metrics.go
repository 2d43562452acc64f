package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// outcomeOK is the outcome label of successful fetches.
const outcomeOK = "ok"

// Metrics holds the Prometheus collectors of a Fetcher.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  prometheus.Counter
	inFlight prometheus.Gauge
	duration *prometheus.HistogramVec
}

// NewMetrics creates the fetch collectors and registers them on reg.
// A nil reg creates unregistered collectors, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docingest",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Fetch operations by outcome (ok or error kind).",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docingest",
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Fetch attempts that were retried.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docingest",
			Subsystem: "fetch",
			Name:      "in_flight",
			Help:      "Requests currently holding a fetch slot.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docingest",
			Subsystem: "fetch",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of single fetch attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.retries, m.inFlight, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) observeAttempt(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) slotAcquired() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) slotReleased() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
