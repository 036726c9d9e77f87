package waitlist

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeCreated  = "created"
	outcomeInvalid  = "invalid"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

type Metrics struct {
	registrations *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_registrations_total",
				Help: "Waitlist registration attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{m.registrations}
}

func (m *Metrics) observeRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}
