package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Awards      *prometheus.CounterVec
	Revocations *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Awards: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_badge_awards_total",
			Help: "Badge awards by category and outcome (awarded, duplicate)",
		}, []string{"category", "outcome"}),
		Revocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_badge_revocations_total",
			Help: "Badge revocations by category",
		}, []string{"category"}),
	}
}
