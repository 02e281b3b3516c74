// Package metrics defines the register's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kassa"

type Metrics struct {
	SalesSubmitted         *prometheus.CounterVec
	SaleFailures           *prometheus.CounterVec
	SaleAmount             prometheus.Histogram
	SubmissionsInFlight    prometheus.Gauge
	ShiftVariance          prometheus.Histogram
	ReadModelInvalidations *prometheus.CounterVec
	NotificationFailures   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SalesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_submitted_total",
			Help:      "Sales confirmed by the backend, by payment method label.",
		}, []string{"method"}),
		SaleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_failures_total",
			Help:      "Rejected sale submissions, by error kind.",
		}, []string{"kind"}),
		SaleAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_amount",
			Help:      "Confirmed sale totals.",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 10),
		}),
		SubmissionsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "submissions_in_flight",
			Help:      "Sale submissions waiting on the backend.",
		}),
		ShiftVariance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shift_variance",
			Help:      "Counted minus expected cash at shift close.",
			Buckets:   []float64{-100000, -10000, -1000, 0, 1000, 10000, 100000},
		}),
		ReadModelInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_model_invalidations_total",
			Help:      "Read-model invalidations signalled after sales and refunds.",
		}, []string{"model"}),
		NotificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be delivered.",
		}, []string{"type"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SalesSubmitted,
			m.SaleFailures,
			m.SaleAmount,
			m.SubmissionsInFlight,
			m.ShiftVariance,
			m.ReadModelInvalidations,
			m.NotificationFailures,
		)
	}
	return m
}
