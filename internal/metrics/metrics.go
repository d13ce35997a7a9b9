// Package metrics holds the Prometheus counters exposed on /metrics.
//
// Counters register on the default registry at init, so promhttp.Handler()
// serves them without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Logins counts login attempts by result: success, invalid_credentials, unverified, error.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_auth_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	// BlacklistChecks counts revocation lookups by kind (token, user) and result.
	BlacklistChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_blacklist_checks_total",
		Help: "Blacklist lookups by kind and result.",
	}, []string{"kind", "result"})

	// ResetRequests counts forgot-password requests by outcome.
	ResetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_password_reset_requests_total",
		Help: "Password reset requests by outcome.",
	}, []string{"outcome"})

	// SweepDeleted counts rows removed by the periodic sweeps, per job.
	SweepDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_sweep_deleted_total",
		Help: "Rows deleted by periodic sweeps.",
	}, []string{"job"})

	// BlacklistEntries is the ledger size, refreshed after each blacklist sweep.
	BlacklistEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blog_blacklist_entries",
		Help: "Rows in the durable token blacklist.",
	})
)

// Check results shared by the blacklist counters.
const (
	ResultRevoked = "revoked"
	ResultAllowed = "allowed"
	ResultExempt  = "exempt"
)
