// Package reconcile decides, per date, whether enough reports have
// arrived to compute daily KPIs, and reruns the full merge-and-compute
// whenever new files land. It always reloads every stored record for the
// date rather than accumulating state between calls: uploads arrive from
// independent calls in arbitrary order, and reload-and-remerge is the
// only way the computation is guaranteed to see the union of everything
// stored.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"

	"reportflow/internal/config"
	"reportflow/internal/events"
	"reportflow/internal/kpi"
	"reportflow/internal/metrics"
	"reportflow/internal/notify"
	"reportflow/internal/store"
)

// Engine runs reconciliation passes. Passes for the same date are
// serialized by a per-date lock; different dates run concurrently.
type Engine struct {
	store    *store.Store
	computer kpi.Computer
	notifier notify.Notifier
	bus      *events.Bus

	mu    sync.Mutex
	locks map[string]*dateLock
}

// dateLock is refcounted so entries are evicted once the last waiter for
// a date releases, keeping the lock map bounded over the process
// lifetime.
type dateLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(st *store.Store, computer kpi.Computer, notifier notify.Notifier, bus *events.Bus) *Engine {
	return &Engine{
		store:    st,
		computer: computer,
		notifier: notifier,
		bus:      bus,
		locks:    make(map[string]*dateLock),
	}
}

// Outcome is the result of one reconciliation pass. Incomplete means the
// key report type has not arrived and nothing was computed; the
// checklist tells the caller what is still pending.
type Outcome struct {
	Date       string      `json:"date"`
	Incomplete bool        `json:"incomplete"`
	Checklist  Checklist   `json:"checklist"`
	Result     *kpi.Result `json:"result,omitempty"`
}

// Reconcile runs one pass for the date. newIDs are the records ingested
// by the triggering call; when gated they are marked completed (durably
// stored, awaiting a later pass) without any computation.
func (e *Engine) Reconcile(ctx context.Context, date string, newIDs []int64) (*Outcome, error) {
	unlock := e.lockDate(date)
	defer unlock()

	checklist, err := e.Checklist(ctx, date)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("checklist for %s: %w", date, err)
	}

	// Gate: without the key report there is nothing worth computing.
	if !checklist.Complete && !checklist.HasKeyType() {
		if err := e.store.MarkReportsCompleted(ctx, newIDs, config.Now()); err != nil {
			metrics.ReconcileRuns.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("mark gated records for %s: %w", date, err)
		}
		metrics.ReconcileRuns.WithLabelValues("gated").Inc()
		e.publish(events.Event{Kind: events.KindGated, Date: date, Detail: fmt.Sprintf("%d of %d types received", checklist.ReceivedCount, checklist.TotalCount), At: config.Now()})
		return &Outcome{Date: date, Incomplete: true, Checklist: checklist}, nil
	}

	// Reload everything stored for the date, not just the new batch.
	records, err := e.store.ReportsForDate(ctx, date)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("reload reports for %s: %w", date, err)
	}
	merged, mergedIDs := mergeRecords(records)
	metrics.MergedRows.Set(float64(merged.Count()))

	result, err := e.computer.Compute(merged)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("compute for %s: %w", date, err)
	}
	result.Daily.ReportDate = date
	result.Daily.IsPartial = !checklist.Complete
	result.Daily.ComputedAt = config.Now()

	e.enrichWithDelta(ctx, &result.Daily)

	if err := e.persist(ctx, date, result); err != nil {
		metrics.ReconcileRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	if err := e.store.MarkReportsCompleted(ctx, mergedIDs, config.Now()); err != nil {
		metrics.ReconcileRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("mark reconciled records for %s: %w", date, err)
	}

	outcome := "partial"
	if checklist.Complete {
		outcome = "complete"
	}
	metrics.ReconcileRuns.WithLabelValues(outcome).Inc()
	e.publish(events.Event{Kind: events.KindComputed, Date: date, Detail: outcome, At: config.Now()})

	e.notifyBestEffort(ctx, date, result, checklist)

	return &Outcome{Date: date, Checklist: checklist, Result: result}, nil
}

func (e *Engine) persist(ctx context.Context, date string, result *kpi.Result) error {
	if err := e.store.UpsertDailyKPIs(ctx, &result.Daily); err != nil {
		return fmt.Errorf("upsert daily kpis for %s: %w", date, err)
	}
	if err := e.store.ReplaceAgentPerformance(ctx, date, result.Agents); err != nil {
		return fmt.Errorf("replace agent performance for %s: %w", date, err)
	}
	if err := e.store.ReplaceSkillSummary(ctx, date, result.Skills); err != nil {
		return fmt.Errorf("replace skill summary for %s: %w", date, err)
	}
	if err := e.store.ReplaceAnomalies(ctx, date, result.Anomalies); err != nil {
		return fmt.Errorf("replace anomalies for %s: %w", date, err)
	}
	return nil
}

func (e *Engine) notifyBestEffort(ctx context.Context, date string, result *kpi.Result, checklist Checklist) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, date, result, checklist.Missing); err != nil {
		log.Printf("notify for %s failed: %v", date, err)
		metrics.NotifyFailures.Inc()
		e.publish(events.Event{Kind: events.KindNotifyFail, Date: date, Detail: err.Error(), At: config.Now()})
	}
}

func (e *Engine) lockDate(date string) func() {
	e.mu.Lock()
	l, ok := e.locks[date]
	if !ok {
		l = &dateLock{}
		e.locks[date] = l
	}
	l.refs++
	e.mu.Unlock()
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, date)
		}
		e.mu.Unlock()
	}
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
