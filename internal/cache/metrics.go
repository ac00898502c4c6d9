package cache

import "github.com/prometheus/client_golang/prometheus"

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Metrics counts cache lookups by result.
type Metrics struct {
	requests *prometheus.CounterVec
}

// NewMetrics registers docvault_cache_requests_total on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_cache_requests_total",
				Help: "Query cache lookups partitioned by result (hit, miss, error).",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requests)
	}
	return m
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}
