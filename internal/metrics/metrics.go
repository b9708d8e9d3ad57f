// Package metrics exposes the Bridge worker's and claim path's Prometheus
// instrumentation, grounded on the teacher's escrow metrics registration
// style (promauto-wrapped CounterVec/HistogramVec/GaugeVec, registered
// once at package init).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_intake_claims_total",
		Help: "Total claim attempts by pool and outcome (ok, sold_out).",
	}, []string{"pool_id", "outcome"})

	DrainProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_intake_drain_processed_total",
		Help: "Messages the Bridge worker committed successfully, by pool.",
	}, []string{"pool_id"})

	DrainDLQTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_intake_drain_dlq_total",
		Help: "Messages the Bridge worker routed to the DLQ, by pool and reason.",
	}, []string{"pool_id", "reason"})

	DrainTransientSkipTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_intake_drain_transient_skip_total",
		Help: "Messages left un-acked this invocation after a transient downstream failure.",
	}, []string{"pool_id"})

	DrainStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_intake_drain_step_duration_seconds",
		Help:    "Latency of each Bridge worker per-message step.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	// QueueDepth is deliberately global, not per-pool — see DESIGN.md
	// Open Question 3 (Non-goal: no per-pool queue-depth metric).
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_intake_queue_depth",
		Help: "Current global intake queue depth.",
	})

	ReapedSlotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_intake_reaped_slots_total",
		Help: "Total RESERVED slots released back to AVAILABLE by the Reaper.",
	})
)
