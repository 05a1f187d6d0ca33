// Package metrics exposes Prometheus counters for the ingestion and
// reconciliation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the service.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// ReportsIngested counts ingested report files by type and outcome
// status (processing or failed).
var ReportsIngested = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reportflow",
	Name:      "reports_ingested_total",
	Help:      "Report files ingested, by report type and record status",
}, []string{"report_type", "status"})

// ReconcileRuns counts reconciliation passes by outcome: gated, partial,
// complete, or failed.
var ReconcileRuns = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reportflow",
	Name:      "reconcile_runs_total",
	Help:      "Reconciliation passes, by outcome",
}, []string{"outcome"})

// ArchiveFailures counts best-effort archival writes that failed.
var ArchiveFailures = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "reportflow",
	Name:      "archive_failures_total",
	Help:      "Archival writes that failed (non-fatal)",
})

// NotifyFailures counts best-effort notifications that failed.
var NotifyFailures = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "reportflow",
	Name:      "notify_failures_total",
	Help:      "Chat notifications that failed (non-fatal)",
})

// MergedRows records how many rows the latest reconciliation merged for
// a date, a rough signal of how full the day's dataset is.
var MergedRows = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "reportflow",
	Name:      "last_reconcile_merged_rows",
	Help:      "Row count of the most recent reconciliation merge",
})
