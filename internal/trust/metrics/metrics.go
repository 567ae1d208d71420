package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CacheLookups *prometheus.CounterVec
	InputLatency *prometheus.HistogramVec
	Scores       prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_trust_cache_lookups_total",
			Help: "Trust score cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		InputLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouch_trust_input_duration_seconds",
			Help:    "Latency of each trust score input read",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"source"}),
		Scores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vouch_trust_score_percentage",
			Help:    "Distribution of computed trust score percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

func (m *Metrics) ObserveInputLatency(source string, d time.Duration) {
	m.InputLatency.WithLabelValues(source).Observe(d.Seconds())
}
