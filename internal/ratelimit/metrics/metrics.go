package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_ratelimit_decisions_total",
			Help: "Rate limit checks by request class and outcome (allowed, limited, error)",
		}, []string{"class", "outcome"}),
	}
}

func (m *Metrics) Observe(class, outcome string) {
	m.Decisions.WithLabelValues(class, outcome).Inc()
}
