package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// BreakerMetrics exposes circuit breaker state: 0 closed, 1 half-open, 2 open.
type BreakerMetrics struct {
	service string
	state   *prometheus.GaugeVec
}

func NewBreakerMetrics(service string, registry *prometheus.Registry) *BreakerMetrics {
	state := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)
	registry.MustRegister(state)
	return &BreakerMetrics{service: service, state: state}
}

// OnStateChange matches resilience.Config.OnStateChange.
func (m *BreakerMetrics) OnStateChange(operation string, _, to gobreaker.State) {
	var value float64
	switch to {
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	m.state.WithLabelValues(m.service, operation).Set(value)
}
