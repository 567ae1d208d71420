package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics makes swallowed audit failures observable.
type Metrics struct {
	AppendTotal     *prometheus.CounterVec
	AppendFailures  *prometheus.CounterVec
	ExportTruncated prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AppendTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_audit_append_total",
			Help: "Audit entries successfully appended, by verification type",
		}, []string{"verification_type"}),
		AppendFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_audit_append_failures_total",
			Help: "Audit entries that could not be written and were dropped, by verification type",
		}, []string{"verification_type"}),
		ExportTruncated: f.NewCounter(prometheus.CounterOpts{
			Name: "vouch_audit_export_truncated_total",
			Help: "Audit exports cut short by the safety cap",
		}),
	}
}

func (m *Metrics) IncrementAppended(verificationType string) {
	m.AppendTotal.WithLabelValues(verificationType).Inc()
}

func (m *Metrics) IncrementAppendFailure(verificationType string) {
	m.AppendFailures.WithLabelValues(verificationType).Inc()
}

func (m *Metrics) IncrementExportTruncated() {
	m.ExportTruncated.Inc()
}
