package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry
	requests *prometheus.CounterVec
	swept    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_auth_requests_total",
			Help: "Auth operations by outcome.",
		}, []string{"operation", "outcome"}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_auth_swept_rows_total",
			Help: "Expired rows removed by the janitor.",
		}, []string{"table"}),
	}
	reg.MustRegister(m.requests, m.swept)
	return m
}

// Observe records one operation. A nil *Metrics is a no-op.
func (m *Metrics) Observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Swept(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.WithLabelValues(table).Add(float64(n))
}
