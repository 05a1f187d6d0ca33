package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"reportflow/internal/report"
)

// Store wraps SQLite access for report records and daily results.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            filename TEXT NOT NULL,
            report_type TEXT NOT NULL,
            report_date TEXT NOT NULL,
            range_start TEXT,
            range_end TEXT,
            archive_ref TEXT,
            longterm_ref TEXT,
            row_count INTEGER NOT NULL DEFAULT 0,
            source TEXT NOT NULL,
            status TEXT NOT NULL,
            error TEXT,
            rows_json TEXT,
            created_at TIMESTAMP,
            updated_at TIMESTAMP,
            processed_at TIMESTAMP
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_key ON reports(filename, report_type, report_date);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_date ON reports(report_date);`,
		`CREATE TABLE IF NOT EXISTS daily_kpis (
            report_date TEXT PRIMARY KEY,
            total_calls INTEGER NOT NULL DEFAULT 0,
            answered_calls INTEGER NOT NULL DEFAULT 0,
            abandoned_calls INTEGER NOT NULL DEFAULT 0,
            outbound_calls INTEGER NOT NULL DEFAULT 0,
            total_agents INTEGER NOT NULL DEFAULT 0,
            avg_handle_sec REAL NOT NULL DEFAULT 0,
            abandon_rate_pct REAL NOT NULL DEFAULT 0,
            service_level_pct REAL NOT NULL DEFAULT 0,
            avg_survey_score REAL NOT NULL DEFAULT 0,
            is_partial INTEGER NOT NULL DEFAULT 1,
            enrichment_json TEXT,
            prev_date TEXT,
            prev_total_calls INTEGER,
            prev_total_agents INTEGER,
            prev_abandon_rate_pct REAL,
            prev_service_level_pct REAL,
            delta_total_calls INTEGER,
            delta_total_agents INTEGER,
            delta_abandon_rate_pct REAL,
            delta_service_level_pct REAL,
            computed_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS agent_performance (
            report_date TEXT NOT NULL,
            agent_id TEXT NOT NULL,
            agent_name TEXT,
            calls_handled INTEGER NOT NULL DEFAULT 0,
            avg_handle_sec REAL NOT NULL DEFAULT 0,
            occupancy_pct REAL NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_agent_perf_date ON agent_performance(report_date);`,
		`CREATE TABLE IF NOT EXISTS skill_summary (
            report_date TEXT NOT NULL,
            skill TEXT NOT NULL,
            offered INTEGER NOT NULL DEFAULT 0,
            answered INTEGER NOT NULL DEFAULT 0,
            abandoned INTEGER NOT NULL DEFAULT 0,
            service_level_pct REAL NOT NULL DEFAULT 0,
            avg_speed_sec REAL NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_skill_summary_date ON skill_summary(report_date);`,
		`CREATE TABLE IF NOT EXISTS anomalies (
            report_date TEXT NOT NULL,
            kind TEXT NOT NULL,
            subject TEXT,
            detail TEXT,
            severity TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_date ON anomalies(report_date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Report record statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Ingestion sources.
const (
	SourceUpload    = "upload"
	SourceAutomated = "automated"
)

// ReportRecord is one row per (filename, report type, report date).
// Rows holds the parsed row collections verbatim so reconciliation can
// re-merge without touching the original file.
type ReportRecord struct {
	ID          int64        `json:"id"`
	Filename    string       `json:"filename"`
	Type        report.Type  `json:"report_type"`
	ReportDate  string       `json:"report_date"`
	RangeStart  *string      `json:"range_start"`
	RangeEnd    *string      `json:"range_end"`
	ArchiveRef  *string      `json:"archive_ref"`
	LongTermRef *string      `json:"longterm_ref"`
	RowCount    int          `json:"row_count"`
	Source      string       `json:"source"`
	Status      string       `json:"status"`
	Error       *string      `json:"error"`
	Rows        *report.Rows `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	ProcessedAt *time.Time   `json:"processed_at"`
}

// UpsertReport inserts or replaces the record keyed by
// (filename, report_type, report_date). On conflict the stored rows are
// replaced and status resets, so re-uploading the same file is safe.
// Archive refs are kept from the prior record when the new ingest has
// none, since an earlier archival of identical bytes still stands.
func (s *Store) UpsertReport(ctx context.Context, rec *ReportRecord) (int64, error) {
	var rowsJSON any
	if rec.Rows != nil {
		buf, err := json.Marshal(rec.Rows)
		if err != nil {
			return 0, fmt.Errorf("marshal rows: %w", err)
		}
		rowsJSON = string(buf)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO reports(filename, report_type, report_date, range_start, range_end, archive_ref, longterm_ref, row_count, source, status, error, rows_json, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(filename, report_type, report_date) DO UPDATE SET
            range_start=excluded.range_start,
            range_end=excluded.range_end,
            archive_ref=COALESCE(excluded.archive_ref, reports.archive_ref),
            longterm_ref=COALESCE(excluded.longterm_ref, reports.longterm_ref),
            row_count=excluded.row_count,
            source=excluded.source,
            status=excluded.status,
            error=excluded.error,
            rows_json=excluded.rows_json,
            updated_at=excluded.updated_at,
            processed_at=NULL`,
		rec.Filename, string(rec.Type), rec.ReportDate, rec.RangeStart, rec.RangeEnd,
		rec.ArchiveRef, rec.LongTermRef, rec.RowCount, rec.Source, rec.Status, rec.Error,
		rowsJSON, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return 0, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT id FROM reports WHERE filename=? AND report_type=? AND report_date=?`,
		rec.Filename, string(rec.Type), rec.ReportDate)
	if err := row.Scan(&rec.ID); err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// ReportsForDate returns every record for the date, failed ones included.
// Callers filter by status as needed.
func (s *Store) ReportsForDate(ctx context.Context, date string) ([]ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, report_type, report_date, range_start, range_end, archive_ref, longterm_ref, row_count, source, status, error, rows_json, created_at, updated_at, processed_at
        FROM reports WHERE report_date=? ORDER BY id ASC`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ReceivedTypes lists the distinct non-failed report types for a date.
func (s *Store) ReceivedTypes(ctx context.Context, date string) ([]report.Type, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT report_type FROM reports WHERE report_date=? AND status != ? ORDER BY report_type ASC`, date, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []report.Type
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, report.Type(t))
	}
	return out, rows.Err()
}

// MarkReportsCompleted stamps the given records completed.
func (s *Store) MarkReportsCompleted(ctx context.Context, ids []int64, ts time.Time) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `UPDATE reports SET status=?, processed_at=?, updated_at=? WHERE id=?`,
			StatusCompleted, ts, ts, id); err != nil {
			return err
		}
	}
	return nil
}

// RecentReports returns the newest records across all dates, for the ops
// status surface.
func (s *Store) RecentReports(ctx context.Context, limit int) ([]ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, report_type, report_date, range_start, range_end, archive_ref, longterm_ref, row_count, source, status, error, rows_json, created_at, updated_at, processed_at
        FROM reports ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanReport(rows *sql.Rows) (ReportRecord, error) {
	var rec ReportRecord
	var typ string
	var rangeStart, rangeEnd, archiveRef, longTermRef, errMsg, rowsJSON sql.NullString
	var processedAt sql.NullTime
	if err := rows.Scan(&rec.ID, &rec.Filename, &typ, &rec.ReportDate, &rangeStart, &rangeEnd,
		&archiveRef, &longTermRef, &rec.RowCount, &rec.Source, &rec.Status, &errMsg, &rowsJSON,
		&rec.CreatedAt, &rec.UpdatedAt, &processedAt); err != nil {
		return rec, err
	}
	rec.Type = report.Type(typ)
	if rangeStart.Valid {
		rec.RangeStart = &rangeStart.String
	}
	if rangeEnd.Valid {
		rec.RangeEnd = &rangeEnd.String
	}
	if archiveRef.Valid {
		rec.ArchiveRef = &archiveRef.String
	}
	if longTermRef.Valid {
		rec.LongTermRef = &longTermRef.String
	}
	if errMsg.Valid {
		rec.Error = &errMsg.String
	}
	if processedAt.Valid {
		rec.ProcessedAt = &processedAt.Time
	}
	if rowsJSON.Valid && rowsJSON.String != "" {
		var r report.Rows
		if err := json.Unmarshal([]byte(rowsJSON.String), &r); err != nil {
			return rec, fmt.Errorf("unmarshal rows for report %d: %w", rec.ID, err)
		}
		rec.Rows = &r
	}
	return rec, nil
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
