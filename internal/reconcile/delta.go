package reconcile

import (
	"context"
	"log"

	"reportflow/internal/kpi"
)

// enrichWithDelta annotates d with day-over-day figures from the nearest
// strictly-earlier date that has stored KPIs. No prior day leaves the
// delta unset; a lookup error degrades the same way (the pipeline
// proceeds without deltas).
func (e *Engine) enrichWithDelta(ctx context.Context, d *kpi.DailyKPIs) {
	prev, err := e.store.LatestKPIsBefore(ctx, d.ReportDate)
	if err != nil {
		log.Printf("delta lookup for %s failed: %v", d.ReportDate, err)
		return
	}
	if prev == nil {
		return
	}
	d.Delta = &kpi.Delta{
		PrevDate:            prev.ReportDate,
		PrevTotalCalls:      prev.TotalCalls,
		PrevTotalAgents:     prev.TotalAgents,
		PrevAbandonRatePct:  prev.AbandonRatePct,
		PrevServiceLevelPct: prev.ServiceLevelPct,
		TotalCalls:          d.TotalCalls - prev.TotalCalls,
		TotalAgents:         d.TotalAgents - prev.TotalAgents,
		AbandonRatePct:      kpi.Round2(d.AbandonRatePct - prev.AbandonRatePct),
		ServiceLevelPct:     kpi.Round2(d.ServiceLevelPct - prev.ServiceLevelPct),
	}
}
