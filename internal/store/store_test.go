package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"reportflow/internal/kpi"
	"reportflow/internal/report"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(filename string, typ report.Type, date string, rows *report.Rows) *ReportRecord {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	return &ReportRecord{
		Filename:   filename,
		Type:       typ,
		ReportDate: date,
		RowCount:   rows.Count(),
		Source:     SourceUpload,
		Status:     StatusProcessing,
		Rows:       rows,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestUpsertReportIdempotent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	rows := &report.Rows{AgentSummaries: []report.AgentSummaryRow{{AgentID: "a1", CallsHandled: 5}}}
	rec := testRecord("AgentSummary_02-01-2025_02-01-2025.xls", report.TypeAgentSummary, "2025-02-01", rows)

	id1, err := s.UpsertReport(ctx, rec)
	if err != nil {
		t.Fatalf("upsert1: %v", err)
	}
	rec2 := testRecord("AgentSummary_02-01-2025_02-01-2025.xls", report.TypeAgentSummary, "2025-02-01", rows)
	id2, err := s.UpsertReport(ctx, rec2)
	if err != nil {
		t.Fatalf("upsert2: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same record id, got %d vs %d", id1, id2)
	}
	records, err := s.ReportsForDate(ctx, "2025-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestUpsertReportReplacesRowsAndResetsStatus(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	first := testRecord("CallDetail_02-01-2025_02-01-2025.csv", report.TypeCallDetail, "2025-02-01",
		&report.Rows{CallDetails: []report.CallDetailRow{{CallID: "c1"}}})
	id, err := s.UpsertReport(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.MarkReportsCompleted(ctx, []int64{id}, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	second := testRecord("CallDetail_02-01-2025_02-01-2025.csv", report.TypeCallDetail, "2025-02-01",
		&report.Rows{CallDetails: []report.CallDetailRow{{CallID: "c1"}, {CallID: "c2"}}})
	if _, err := s.UpsertReport(ctx, second); err != nil {
		t.Fatal(err)
	}
	records, err := s.ReportsForDate(ctx, "2025-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Status != StatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}
	if got.ProcessedAt != nil {
		t.Error("processed_at should be cleared on re-ingest")
	}
	if len(got.Rows.CallDetails) != 2 {
		t.Errorf("rows = %d, want 2", len(got.Rows.CallDetails))
	}
}

func TestReceivedTypesExcludesFailed(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	ok := testRecord("AgentSummary_x.csv", report.TypeAgentSummary, "2025-02-01",
		&report.Rows{AgentSummaries: []report.AgentSummaryRow{{AgentID: "a1"}}})
	if _, err := s.UpsertReport(ctx, ok); err != nil {
		t.Fatal(err)
	}
	msg := "bad file"
	bad := testRecord("CallDetail_x.csv", report.TypeCallDetail, "2025-02-01", &report.Rows{})
	bad.Status = StatusFailed
	bad.Error = &msg
	bad.Rows = nil
	if _, err := s.UpsertReport(ctx, bad); err != nil {
		t.Fatal(err)
	}
	types, err := s.ReceivedTypes(ctx, "2025-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 || types[0] != report.TypeAgentSummary {
		t.Fatalf("received = %v, want [agent_summary]", types)
	}
}

func TestDailyKPIUpsertAndDeltaLookup(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	for _, day := range []struct {
		date  string
		calls int
	}{
		{"2025-01-30", 100},
		{"2025-01-31", 120},
	} {
		d := &kpi.DailyKPIs{ReportDate: day.date, TotalCalls: day.calls, IsPartial: false, ComputedAt: time.Now().UTC()}
		if err := s.UpsertDailyKPIs(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	prev, err := s.LatestKPIsBefore(ctx, "2025-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if prev == nil || prev.ReportDate != "2025-01-31" {
		t.Fatalf("expected 2025-01-31, got %+v", prev)
	}
	prev, err = s.LatestKPIsBefore(ctx, "2025-01-30")
	if err != nil {
		t.Fatal(err)
	}
	if prev != nil {
		t.Fatalf("expected nil before earliest date, got %+v", prev)
	}

	// Recompute overwrites in place.
	d := &kpi.DailyKPIs{ReportDate: "2025-01-31", TotalCalls: 130, IsPartial: false, ComputedAt: time.Now().UTC()}
	if err := s.UpsertDailyKPIs(ctx, d); err != nil {
		t.Fatal(err)
	}
	got, err := s.KPIsForDate(ctx, "2025-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalCalls != 130 {
		t.Fatalf("total_calls = %d, want 130", got.TotalCalls)
	}
}

func TestReplaceAgentPerformanceBatchesAndReplaces(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	// More than one insert batch.
	big := make([]kpi.AgentPerformance, 250)
	for i := range big {
		big[i] = kpi.AgentPerformance{AgentID: fmt.Sprintf("a%03d", i), CallsHandled: i}
	}
	if err := s.ReplaceAgentPerformance(ctx, "2025-02-01", big); err != nil {
		t.Fatal(err)
	}
	rows, err := s.AgentPerformanceForDate(ctx, "2025-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 250 {
		t.Fatalf("rows = %d, want 250", len(rows))
	}

	// A shrinking roster leaves no stale rows behind.
	small := []kpi.AgentPerformance{{AgentID: "a001", CallsHandled: 9}}
	if err := s.ReplaceAgentPerformance(ctx, "2025-02-01", small); err != nil {
		t.Fatal(err)
	}
	rows, err = s.AgentPerformanceForDate(ctx, "2025-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows after replace = %d, want 1", len(rows))
	}
}

func TestReplaceEmptySetClearsDate(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.ReplaceAnomalies(ctx, "2025-02-01", []kpi.Anomaly{{Kind: "high_abandon_rate", Severity: "high"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceAnomalies(ctx, "2025-02-01", nil); err != nil {
		t.Fatal(err)
	}
	rows, err := s.AnomaliesForDate(ctx, "2025-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no anomalies, got %d", len(rows))
	}
}
