// Package metrics defines and registers the custom Prometheus metrics of the
// course catalog API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry through promauto when the
// package is first imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catalog"

// ── Course metrics ────────────────────────────────────────────────────────────

// CoursesCreatedTotal counts courses stored together with their owner
// back-reference.
var CoursesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "courses_created_total",
		Help:      "Total number of courses created.",
	},
)

// DuplicatesRejectedTotal counts creates refused because the owner already
// has a course with the same title and instructor.
// Label:
//   - source: "lookup" (store query) or "claim" (concurrent create holds the claim)
var DuplicatesRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicates_rejected_total",
		Help:      "Total number of course creates rejected as duplicates, by detection source.",
	},
	[]string{"source"},
)

// MutationErrorsTotal counts failed course operations.
// Labels:
//   - op: "add", "import", "update", "delete", "delete_all", "reconcile"
//   - kind: error kind (e.g. "conflict", "forbidden", "store_failure")
var MutationErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutation_errors_total",
		Help:      "Total number of failed course operations, by operation and error kind.",
	},
	[]string{"op", "kind"},
)

// ── Batch metrics ─────────────────────────────────────────────────────────────

// BatchItemsTotal counts batch item outcomes.
// Labels:
//   - batch: "import" or "delete_all"
//   - result: "ok" or the error kind of the item
var BatchItemsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_items_total",
		Help:      "Total number of batch items processed, by batch type and result.",
	},
	[]string{"batch", "result"},
)

// BatchDuration measures a whole batch from dispatch to the last settled item.
var BatchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Duration of batch operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"batch"},
)

// ── Reconciliation metrics ────────────────────────────────────────────────────

// ReconcileRepairsTotal counts back-references repaired by the reconciler.
// Label:
//   - kind: "added" (missing reference restored) or "removed" (dangling reference dropped)
var ReconcileRepairsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_repairs_total",
		Help:      "Total number of user course back-references repaired.",
	},
	[]string{"kind"},
)
