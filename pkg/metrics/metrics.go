package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BookingMetrics holds the Prometheus collectors for the booking engine.
type BookingMetrics struct {
	BookingsCreated   *prometheus.CounterVec
	BookingsConfirmed prometheus.Counter
	BookingsCancelled *prometheus.CounterVec
	BookingsExpired   *prometheus.CounterVec
	ReserveConflicts  *prometheus.CounterVec
	SweepErrors       *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
}

// NewBookingMetrics registers the collectors on reg.
func NewBookingMetrics(reg prometheus.Registerer, namespace string) *BookingMetrics {
	f := promauto.With(reg)
	return &BookingMetrics{
		BookingsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created, by resource kind.",
		}, []string{"kind"}),
		BookingsConfirmed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_confirmed_total",
			Help:      "Bookings transitioned to CONFIRMED.",
		}),
		BookingsCancelled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_cancelled_total",
			Help:      "Bookings cancelled by their owner, by resource kind.",
		}, []string{"kind"}),
		BookingsExpired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_expired_total",
			Help:      "Bookings expired by the sweeper, by resource kind.",
		}, []string{"kind"}),
		ReserveConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reserve_conflicts_total",
			Help:      "Reservations rejected for insufficient capacity, by resource kind.",
		}, []string{"kind"}),
		SweepErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Bookings the sweeper failed to expire, by resource kind.",
		}, []string{"kind"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time taken by one sweeper run.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
