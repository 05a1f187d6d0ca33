// Package ingest accepts raw report files and turns them into stored
// report records. Ingestion is deliberately decoupled from
// reconciliation so callers can land several files before reconciling
// their date once.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"reportflow/internal/archive"
	"reportflow/internal/config"
	"reportflow/internal/events"
	"reportflow/internal/metrics"
	"reportflow/internal/report"
	"reportflow/internal/store"
)

// ErrUnrecognizedReport means the filename matched none of the known
// report-type tokens. Nothing is persisted.
var ErrUnrecognizedReport = errors.New("unrecognized report type")

// ErrParse means the file bytes did not conform to the classified type.
// A failed report record is persisted for audit.
var ErrParse = errors.New("report parse failed")

// Service runs the ingest path: classify, archive, parse, upsert.
type Service struct {
	store   *store.Store
	parser  report.Parser
	archive *archive.Dual
	bus     *events.Bus
}

func NewService(st *store.Store, parser report.Parser, arch *archive.Dual, bus *events.Bus) *Service {
	return &Service{store: st, parser: parser, archive: arch, bus: bus}
}

// Ingest classifies, archives, parses and upserts one report file.
// The returned record is in `processing` status on success and `failed`
// status (with ErrParse returned) when the bytes do not parse. The
// caller is responsible for triggering reconciliation for the record's
// report date.
func (s *Service) Ingest(ctx context.Context, data []byte, filename, source string) (*store.ReportRecord, error) {
	typ := report.Classify(filename)
	if typ == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedReport, filename)
	}

	now := config.Now()
	rec := &store.ReportRecord{
		Filename:   filename,
		Type:       typ,
		Source:     source,
		Status:     store.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
		ReportDate: now.Format(report.DateLayout),
	}
	if start, end := report.ExtractDateRange(filename); !end.IsZero() {
		startStr := start.Format(report.DateLayout)
		endStr := end.Format(report.DateLayout)
		rec.RangeStart = &startStr
		rec.RangeEnd = &endStr
		rec.ReportDate = endStr
	}

	// Both archival writes are best-effort and never gate the record.
	if s.archive != nil {
		refs := s.archive.Store(ctx, rec.ReportDate, filename, data, func() {
			metrics.ArchiveFailures.Inc()
		})
		rec.ArchiveRef = refs.Primary
		rec.LongTermRef = refs.LongTerm
	}

	rows, parseErr := s.parser.Parse(data, typ)
	if parseErr != nil {
		msg := parseErr.Error()
		rec.Status = store.StatusFailed
		rec.Error = &msg
		rec.Rows = nil
		rec.RowCount = 0
		if _, err := s.store.UpsertReport(ctx, rec); err != nil {
			return nil, fmt.Errorf("store failed report: %w", err)
		}
		metrics.ReportsIngested.WithLabelValues(string(typ), store.StatusFailed).Inc()
		s.publish(events.Event{Kind: events.KindFailed, Date: rec.ReportDate, Filename: filename, Type: string(typ), Detail: msg, At: now})
		return rec, fmt.Errorf("%w: %v", ErrParse, parseErr)
	}

	rec.Rows = rows
	rec.RowCount = rows.Count()
	if _, err := s.store.UpsertReport(ctx, rec); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	metrics.ReportsIngested.WithLabelValues(string(typ), store.StatusProcessing).Inc()
	s.publish(events.Event{Kind: events.KindIngested, Date: rec.ReportDate, Filename: filename, Type: string(typ), At: now})
	return rec, nil
}

func (s *Service) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}
