// Package metrics exposes the Prometheus instruments the API and worker
// record into. Everything registers on the default registry served at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts check-in attempts by outcome (ok, validation,
	// timing, state, error).
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_checkins_total",
		Help: "Check-in attempts by outcome.",
	}, []string{"outcome"})

	// CheckOuts counts check-out attempts by outcome.
	CheckOuts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_checkouts_total",
		Help: "Check-out attempts by outcome.",
	}, []string{"outcome"})

	// ConflictChecks counts conflict evaluations by resulting kind.
	ConflictChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_conflict_checks_total",
		Help: "Conflict checks by detected kind.",
	}, []string{"kind"})

	// SweptSessions counts ledger rows the worker sweeper touched.
	SweptSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_swept_sessions_total",
		Help: "Sessions resolved by the sweeper, by resulting status.",
	}, []string{"status"})
)
