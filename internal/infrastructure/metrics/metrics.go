package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal tracks subdomain claim attempts by outcome
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "locasite_reservations_total",
		Help: "Total number of subdomain claim attempts",
	}, []string{"result"})

	// ReservationsExpiredTotal tracks reservations reaped by the cleanup job
	ReservationsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locasite_reservations_expired_total",
		Help: "Total number of expired reservations removed",
	})

	// VerificationChecksTotal tracks custom-domain status polls by result
	VerificationChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "locasite_verification_checks_total",
		Help: "Total number of domain verification status checks",
	}, []string{"status"})

	// PublishesTotal tracks publish attempts by outcome
	PublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "locasite_publishes_total",
		Help: "Total number of publish attempts",
	}, []string{"result"})

	// ProviderRequestDuration tracks hosting-provider API latency
	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "locasite_provider_request_seconds",
		Help:    "Histogram of hosting provider request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// DBConnectionsActive tracks open database connections
	DBConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "locasite_db_connections_active",
		Help: "Number of active database connections",
	})
)
