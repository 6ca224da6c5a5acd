package proxy

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomePreflight = "preflight"
	outcomeForwarded = "forwarded"
)

// Metrics agrupa os coletores do proxy. Um *Metrics nil é válido e não faz nada.
type Metrics struct {
	outcomes           *prometheus.CounterVec
	upstreamResponses  *prometheus.CounterVec
	upstreamLatency    prometheus.Histogram
	concurrencyRejects prometheus.Counter
}

// NewMetrics registra os coletores em reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_requests_total",
				Help: "Inbound calls by terminal outcome.",
			},
			[]string{"outcome"},
		),
		upstreamResponses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_upstream_responses_total",
				Help: "Upstream responses by HTTP status code.",
			},
			[]string{"code"},
		),
		upstreamLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "proxy_upstream_duration_seconds",
			Help:    "Time spent waiting for the upstream response body.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}),
		concurrencyRejects: f.NewCounter(prometheus.CounterOpts{
			Name: "proxy_concurrency_rejections_total",
			Help: "Calls refused because every in-flight slot was busy.",
		}),
	}
}

func (m *Metrics) outcome(o string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(o).Inc()
}

func (m *Metrics) upstream(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamResponses.WithLabelValues(strconv.Itoa(status)).Inc()
	m.upstreamLatency.Observe(d.Seconds())
}

// ConcurrencyRejected conta uma recusa do ConcurrencyMiddleware.
func (m *Metrics) ConcurrencyRejected() {
	if m == nil {
		return
	}
	m.concurrencyRejects.Inc()
}
