package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	AssetsCreated            prometheus.Counter
	PhaseTransitions         *prometheus.CounterVec
	VerificationRequests     *prometheus.CounterVec
	VerificationFulfillments *prometheus.CounterVec
	DepositsTotal            prometheus.Counter
	DistributionsTotal       prometheus.Counter
	DistributedAmount        prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AssetsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spyral_assets_created_total",
			Help: "Total number of assets created.",
		}),
		PhaseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spyral_phase_transitions_total",
			Help: "Lifecycle transitions by target phase.",
		}, []string{"to_phase"}),
		VerificationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spyral_verification_requests_total",
			Help: "Verification requests issued, by kind.",
		}, []string{"kind"}),
		VerificationFulfillments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spyral_verification_fulfillments_total",
			Help: "Verification fulfillments processed, by outcome.",
		}, []string{"outcome"}),
		DepositsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spyral_revenue_deposits_total",
			Help: "Revenue deposits accepted.",
		}),
		DistributionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spyral_revenue_distributions_total",
			Help: "Completed revenue distributions.",
		}),
		DistributedAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "spyral_revenue_distributed_amount",
			Help:    "Amount paid out per distribution, smallest unit.",
			Buckets: prometheus.ExponentialBuckets(1, 10, 8),
		}),
	}
}

// Fulfillment outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeAbsorbed = "absorbed_error"
)

func (m *Metrics) IncAssetsCreated() {
	if m != nil {
		m.AssetsCreated.Inc()
	}
}

func (m *Metrics) IncPhaseTransition(toPhase string) {
	if m != nil {
		m.PhaseTransitions.WithLabelValues(toPhase).Inc()
	}
}

func (m *Metrics) IncVerificationRequest(kind string) {
	if m != nil {
		m.VerificationRequests.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncFulfillment(outcome string) {
	if m != nil {
		m.VerificationFulfillments.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncDeposit() {
	if m != nil {
		m.DepositsTotal.Inc()
	}
}

func (m *Metrics) ObserveDistribution(amount int64) {
	if m != nil {
		m.DistributionsTotal.Inc()
		m.DistributedAmount.Observe(float64(amount))
	}
}
