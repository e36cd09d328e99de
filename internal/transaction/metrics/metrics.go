package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the transaction module.
type Metrics struct {
	// Purchase submissions by outcome
	Submissions *prometheus.CounterVec

	// Seller attestations by action and outcome
	Attestations *prometheus.CounterVec

	// End-to-end latency of the atomic ownership transfer
	TransferLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curio_transaction_submissions_total",
			Help: "Total purchase submissions by outcome",
		}, []string{"outcome"}), // outcome: "accepted", "listing_unavailable", "rejected_input"

		Attestations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curio_transaction_attestations_total",
			Help: "Total seller attestations by action and outcome",
		}, []string{"action", "outcome"}), // action: "confirm", "reject"

		TransferLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "curio_transaction_transfer_duration_seconds",
			Help:    "Duration of the atomic ownership transfer including all writes",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementAttestation(action, outcome string) {
	if m != nil {
		m.Attestations.WithLabelValues(action, outcome).Inc()
	}
}

func (m *Metrics) ObserveTransferLatency(d time.Duration) {
	if m != nil {
		m.TransferLatency.Observe(d.Seconds())
	}
}
