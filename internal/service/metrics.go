package service

import (
	"docvault/internal/model"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts document mutations and failed blob cleanups.
// A nil *Metrics records nothing.
type Metrics struct {
	mutations       *prometheus.CounterVec
	cleanupFailures prometheus.Counter
}

// NewMetrics registers the service collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_document_mutations_total",
				Help: "Committed document mutations partitioned by action.",
			},
			[]string{"action"},
		),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docvault_blob_cleanup_failures_total",
			Help: "Blob deletions that failed during document update, delete or rollback.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.mutations, m.cleanupFailures)
	}
	return m
}

func (m *Metrics) mutation(action model.HistoryAction) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) cleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}
