package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification module.
type Metrics struct {
	// Emitted events by type
	Emitted *prometheus.CounterVec

	// Events dropped because the dispatcher inbox was full
	Dropped prometheus.Counter

	// Persist or fan-out failures by sink
	DeliveryFailures *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curio_notifications_emitted_total",
			Help: "Total notification events accepted for dispatch by type",
		}, []string{"type"}),

		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_notifications_dropped_total",
			Help: "Total notification events dropped due to a full dispatch buffer",
		}),

		DeliveryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curio_notifications_delivery_failures_total",
			Help: "Total notification delivery failures by sink",
		}, []string{"sink"}),
	}
}

func (m *Metrics) IncrementEmitted(notificationType string) {
	if m != nil {
		m.Emitted.WithLabelValues(notificationType).Inc()
	}
}

func (m *Metrics) IncrementDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) IncrementDeliveryFailure(sink string) {
	if m != nil {
		m.DeliveryFailures.WithLabelValues(sink).Inc()
	}
}
