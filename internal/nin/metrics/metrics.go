package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Initiations    *prometheus.CounterVec
	OracleDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Initiations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_nin_initiations_total",
			Help: "NIN verification attempts by outcome (verified, failed, rejected) and failure reason",
		}, []string{"outcome", "reason"}),
		OracleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouch_nin_oracle_duration_seconds",
			Help:    "Latency of NIN provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementOutcome(outcome, reason string) {
	m.Initiations.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) ObserveOracle(result string, seconds float64) {
	m.OracleDuration.WithLabelValues(result).Observe(seconds)
}
