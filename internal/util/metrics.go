package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total number of bookings cancelled by users",
	})

	BookingsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_expired_total",
		Help: "Total number of bookings expired by the sweep",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of rejected booking attempts",
	}, []string{"reason"})

	LedgerRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_rejections_total",
		Help: "Total number of reservation attempts rejected by the availability ledger",
	}, []string{"source"})

	PaymentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Total number of payment sessions opened",
	})

	PaymentsPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_paid_total",
		Help: "Total number of payments confirmed paid",
	})

	PaymentsRenewedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_renewed_total",
		Help: "Total number of payment sessions renewed",
	})

	PaymentSessionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_sessions_expired_total",
		Help: "Total number of payment sessions expired by the sweep",
	})

	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Duration of reconciliation sweep runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"sweep"})

	SweepFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_failures_total",
		Help: "Total number of per-item failures during sweep runs",
	}, []string{"sweep"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
