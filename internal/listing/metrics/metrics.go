package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the listing module.
type Metrics struct {
	// Listings published
	Created prometheus.Counter

	// Listings withdrawn by their seller
	Cancelled prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_listings_created_total",
			Help: "Total listings published",
		}),

		Cancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curio_listings_cancelled_total",
			Help: "Total listings cancelled by their seller",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.Created.Inc()
	}
}

func (m *Metrics) IncrementCancelled() {
	if m != nil {
		m.Cancelled.Inc()
	}
}
