// Package metrics defines and registers all custom Prometheus metrics for the
// subscription service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// init through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subscription"

// ── Webhook metrics ───────────────────────────────────────────────────────────

// WebhookEventsTotal counts verified provider events by how they were handled.
// Labels:
//   - kind: normalized event kind (e.g. "checkout_completed", "unknown")
//   - outcome: "applied", "skipped", "ignored" or "failed"
var WebhookEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Total number of verified webhook events, by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

// WebhookRejectedTotal counts deliveries rejected before reconciliation.
// Label:
//   - reason: "signature", "too_large" or "unreadable"
var WebhookRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_rejected_total",
		Help:      "Total number of webhook deliveries rejected before reconciliation, by reason.",
	},
	[]string{"reason"},
)

// WebhookLedgerHitsTotal counts redeliveries caught by the event-id ledger.
// State-equality skips are not included.
var WebhookLedgerHitsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_ledger_hits_total",
		Help:      "Total number of webhook events skipped because their id was already processed.",
	},
)

// ReconcileErrorsTotal counts absorbed reconciliation failures.
// Label:
//   - reason: "user_not_found", "remote_lookup", "validation" or "store"
var ReconcileErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_errors_total",
		Help:      "Total number of webhook events whose reconciliation failed.",
	},
	[]string{"reason"},
)

// WebhookProcessingDuration measures verification plus reconciliation of one delivery.
var WebhookProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_processing_duration_seconds",
		Help:      "Duration of webhook handling from body read to acknowledgement.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// ── Usage metrics ─────────────────────────────────────────────────────────────

// UsageIncrementsTotal counts metering requests.
// Label:
//   - result: "ok", "quota_exceeded" or "error"
var UsageIncrementsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "usage_increments_total",
		Help:      "Total number of usage increment requests, by result.",
	},
	[]string{"result"},
)
