// Package metrics defines and registers the custom Prometheus metrics of the
// user service. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics are registered with the default registry on package init via
// promauto; HTTP RED metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "users"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts calls to the public auth endpoints.
// Labels:
//   - operation: register, confirm, login, refresh, logout, forgot, reset, change_password
//   - result: "success" or the mapped error class (e.g. "unauthorized", "conflict")
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of auth operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// GuardDecisionsTotal counts Access Guard outcomes.
// Label:
//   - decision: "allow", "unauthorized" or "forbidden"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of access guard decisions.",
	},
	[]string{"decision"},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailDeliveriesTotal counts finished delivery attempts per message.
// Labels:
//   - kind: confirmation, forgot-password, temporary-password
//   - result: "sent" or "failed" (after all retries)
var MailDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_deliveries_total",
		Help:      "Total number of emails delivered or given up on.",
	},
	[]string{"kind", "result"},
)

// MailDroppedTotal counts messages rejected because the worker queue was full.
var MailDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_dropped_total",
		Help:      "Total number of emails dropped because the mail queue was full.",
	},
	[]string{"kind"},
)

// MailQueueDepth tracks pending messages in each mail worker channel.
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of emails pending in each mail worker channel.",
	},
	[]string{"worker_id"},
)

// MailDeliveryDuration measures a delivery including retries.
var MailDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of email delivery from dequeue to the final attempt.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)
