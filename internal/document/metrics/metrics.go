package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Uploads        *prometheus.CounterVec
	Reviews        *prometheus.CounterVec
	OrphanedBlobs  prometheus.Counter
	BlobDeleteFail prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_document_uploads_total",
			Help: "Document uploads by outcome",
		}, []string{"outcome"}),
		Reviews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_document_reviews_total",
			Help: "Reviewer decisions by result (verified, rejected)",
		}, []string{"result"}),
		OrphanedBlobs: f.NewCounter(prometheus.CounterOpts{
			Name: "vouch_document_orphaned_blobs_total",
			Help: "Blobs left behind after a failed record insert and a failed cleanup",
		}),
		BlobDeleteFail: f.NewCounter(prometheus.CounterOpts{
			Name: "vouch_document_blob_delete_failures_total",
			Help: "Blob deletes that failed after the document record was removed",
		}),
	}
}
