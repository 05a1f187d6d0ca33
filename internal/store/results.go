package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"reportflow/internal/kpi"
)

// insertBatchSize bounds rows per INSERT so a large agent roster does not
// blow past statement limits.
const insertBatchSize = 100

// UpsertDailyKPIs writes the single KPI row for the date, replacing any
// prior (partial or complete) computation in place.
func (s *Store) UpsertDailyKPIs(ctx context.Context, d *kpi.DailyKPIs) error {
	var enrichment any
	if d.Enrichment != nil {
		buf, err := json.Marshal(d.Enrichment)
		if err != nil {
			return fmt.Errorf("marshal enrichment: %w", err)
		}
		enrichment = string(buf)
	}
	var prevDate, prevCalls, prevAgents, prevAbandon, prevSL, dCalls, dAgents, dAbandon, dSL any
	if d.Delta != nil {
		prevDate = d.Delta.PrevDate
		prevCalls = d.Delta.PrevTotalCalls
		prevAgents = d.Delta.PrevTotalAgents
		prevAbandon = d.Delta.PrevAbandonRatePct
		prevSL = d.Delta.PrevServiceLevelPct
		dCalls = d.Delta.TotalCalls
		dAgents = d.Delta.TotalAgents
		dAbandon = d.Delta.AbandonRatePct
		dSL = d.Delta.ServiceLevelPct
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO daily_kpis(report_date, total_calls, answered_calls, abandoned_calls, outbound_calls, total_agents, avg_handle_sec, abandon_rate_pct, service_level_pct, avg_survey_score, is_partial, enrichment_json, prev_date, prev_total_calls, prev_total_agents, prev_abandon_rate_pct, prev_service_level_pct, delta_total_calls, delta_total_agents, delta_abandon_rate_pct, delta_service_level_pct, computed_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(report_date) DO UPDATE SET
            total_calls=excluded.total_calls,
            answered_calls=excluded.answered_calls,
            abandoned_calls=excluded.abandoned_calls,
            outbound_calls=excluded.outbound_calls,
            total_agents=excluded.total_agents,
            avg_handle_sec=excluded.avg_handle_sec,
            abandon_rate_pct=excluded.abandon_rate_pct,
            service_level_pct=excluded.service_level_pct,
            avg_survey_score=excluded.avg_survey_score,
            is_partial=excluded.is_partial,
            enrichment_json=excluded.enrichment_json,
            prev_date=excluded.prev_date,
            prev_total_calls=excluded.prev_total_calls,
            prev_total_agents=excluded.prev_total_agents,
            prev_abandon_rate_pct=excluded.prev_abandon_rate_pct,
            prev_service_level_pct=excluded.prev_service_level_pct,
            delta_total_calls=excluded.delta_total_calls,
            delta_total_agents=excluded.delta_total_agents,
            delta_abandon_rate_pct=excluded.delta_abandon_rate_pct,
            delta_service_level_pct=excluded.delta_service_level_pct,
            computed_at=excluded.computed_at`,
		d.ReportDate, d.TotalCalls, d.AnsweredCalls, d.AbandonedCalls, d.OutboundCalls,
		d.TotalAgents, d.AvgHandleSec, d.AbandonRatePct, d.ServiceLevelPct, d.AvgSurveyScore,
		boolToInt(d.IsPartial), enrichment,
		prevDate, prevCalls, prevAgents, prevAbandon, prevSL,
		dCalls, dAgents, dAbandon, dSL, d.ComputedAt)
	return err
}

// KPIsForDate loads the stored daily KPI row, or nil when none exists.
func (s *Store) KPIsForDate(ctx context.Context, date string) (*kpi.DailyKPIs, error) {
	row := s.db.QueryRowContext(ctx, dailyKPIQuery+` WHERE report_date=?`, date)
	return scanDailyKPIs(row)
}

// LatestKPIsBefore returns the KPI row for the nearest date strictly
// earlier than date, or nil when no such day has stored KPIs.
func (s *Store) LatestKPIsBefore(ctx context.Context, date string) (*kpi.DailyKPIs, error) {
	row := s.db.QueryRowContext(ctx, dailyKPIQuery+` WHERE report_date < ? ORDER BY report_date DESC LIMIT 1`, date)
	return scanDailyKPIs(row)
}

const dailyKPIQuery = `SELECT report_date, total_calls, answered_calls, abandoned_calls, outbound_calls, total_agents, avg_handle_sec, abandon_rate_pct, service_level_pct, avg_survey_score, is_partial, enrichment_json, prev_date, prev_total_calls, prev_total_agents, prev_abandon_rate_pct, prev_service_level_pct, delta_total_calls, delta_total_agents, delta_abandon_rate_pct, delta_service_level_pct, computed_at FROM daily_kpis`

func scanDailyKPIs(row *sql.Row) (*kpi.DailyKPIs, error) {
	var d kpi.DailyKPIs
	var partial int
	var enrichment, prevDate sql.NullString
	var prevCalls, prevAgents, dCalls, dAgents sql.NullInt64
	var prevAbandon, prevSL, dAbandon, dSL sql.NullFloat64
	var computedAt sql.NullTime
	err := row.Scan(&d.ReportDate, &d.TotalCalls, &d.AnsweredCalls, &d.AbandonedCalls,
		&d.OutboundCalls, &d.TotalAgents, &d.AvgHandleSec, &d.AbandonRatePct,
		&d.ServiceLevelPct, &d.AvgSurveyScore, &partial, &enrichment,
		&prevDate, &prevCalls, &prevAgents, &prevAbandon, &prevSL,
		&dCalls, &dAgents, &dAbandon, &dSL, &computedAt)
	switch err {
	case nil:
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, err
	}
	d.IsPartial = partial != 0
	if enrichment.Valid && enrichment.String != "" {
		_ = json.Unmarshal([]byte(enrichment.String), &d.Enrichment)
	}
	if prevDate.Valid {
		d.Delta = &kpi.Delta{
			PrevDate:            prevDate.String,
			PrevTotalCalls:      int(prevCalls.Int64),
			PrevTotalAgents:     int(prevAgents.Int64),
			PrevAbandonRatePct:  prevAbandon.Float64,
			PrevServiceLevelPct: prevSL.Float64,
			TotalCalls:          int(dCalls.Int64),
			TotalAgents:         int(dAgents.Int64),
			AbandonRatePct:      dAbandon.Float64,
			ServiceLevelPct:     dSL.Float64,
		}
	}
	if computedAt.Valid {
		d.ComputedAt = computedAt.Time
	}
	return &d, nil
}

// ReplaceAgentPerformance deletes the date's rows and inserts the fresh
// set in bounded batches. Never patches in place: a shrinking agent
// roster must not leave stale rows behind.
func (s *Store) ReplaceAgentPerformance(ctx context.Context, date string, rows []kpi.AgentPerformance) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM agent_performance WHERE report_date=?`, date); err != nil {
		return err
	}
	return batchInsert(ctx, s.db, len(rows), `INSERT INTO agent_performance(report_date, agent_id, agent_name, calls_handled, avg_handle_sec, occupancy_pct) VALUES `, 6,
		func(i int, args []any) []any {
			r := rows[i]
			return append(args, date, r.AgentID, r.AgentName, r.CallsHandled, r.AvgHandleSec, r.OccupancyPct)
		})
}

// ReplaceSkillSummary deletes-then-inserts the date's per-skill rows.
func (s *Store) ReplaceSkillSummary(ctx context.Context, date string, rows []kpi.SkillAggregate) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM skill_summary WHERE report_date=?`, date); err != nil {
		return err
	}
	return batchInsert(ctx, s.db, len(rows), `INSERT INTO skill_summary(report_date, skill, offered, answered, abandoned, service_level_pct, avg_speed_sec) VALUES `, 7,
		func(i int, args []any) []any {
			r := rows[i]
			return append(args, date, r.Skill, r.Offered, r.Answered, r.Abandoned, r.ServiceLevelPct, r.AvgSpeedSec)
		})
}

// ReplaceAnomalies deletes-then-inserts the date's anomaly rows.
func (s *Store) ReplaceAnomalies(ctx context.Context, date string, rows []kpi.Anomaly) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM anomalies WHERE report_date=?`, date); err != nil {
		return err
	}
	return batchInsert(ctx, s.db, len(rows), `INSERT INTO anomalies(report_date, kind, subject, detail, severity) VALUES `, 5,
		func(i int, args []any) []any {
			r := rows[i]
			return append(args, date, r.Kind, r.Subject, r.Detail, r.Severity)
		})
}

// AgentPerformanceForDate loads the stored per-agent rows for a date.
func (s *Store) AgentPerformanceForDate(ctx context.Context, date string) ([]kpi.AgentPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT agent_id, agent_name, calls_handled, avg_handle_sec, occupancy_pct FROM agent_performance WHERE report_date=? ORDER BY agent_id ASC`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []kpi.AgentPerformance
	for rows.Next() {
		var r kpi.AgentPerformance
		var name sql.NullString
		if err := rows.Scan(&r.AgentID, &name, &r.CallsHandled, &r.AvgHandleSec, &r.OccupancyPct); err != nil {
			return nil, err
		}
		r.AgentName = name.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// SkillSummaryForDate loads the stored per-skill rows for a date.
func (s *Store) SkillSummaryForDate(ctx context.Context, date string) ([]kpi.SkillAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT skill, offered, answered, abandoned, service_level_pct, avg_speed_sec FROM skill_summary WHERE report_date=? ORDER BY skill ASC`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []kpi.SkillAggregate
	for rows.Next() {
		var r kpi.SkillAggregate
		if err := rows.Scan(&r.Skill, &r.Offered, &r.Answered, &r.Abandoned, &r.ServiceLevelPct, &r.AvgSpeedSec); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AnomaliesForDate loads the stored anomaly rows for a date.
func (s *Store) AnomaliesForDate(ctx context.Context, date string) ([]kpi.Anomaly, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, subject, detail, severity FROM anomalies WHERE report_date=? ORDER BY kind ASC`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []kpi.Anomaly
	for rows.Next() {
		var r kpi.Anomaly
		var subject, detail, severity sql.NullString
		if err := rows.Scan(&r.Kind, &subject, &detail, &severity); err != nil {
			return nil, err
		}
		r.Subject = subject.String
		r.Detail = detail.String
		r.Severity = severity.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func batchInsert(ctx context.Context, db *sql.DB, total int, prefix string, cols int, fill func(i int, args []any) []any) error {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", cols), ",") + ")"
	for start := 0; start < total; start += insertBatchSize {
		end := start + insertBatchSize
		if end > total {
			end = total
		}
		n := end - start
		values := make([]string, n)
		args := make([]any, 0, n*cols)
		for i := 0; i < n; i++ {
			values[i] = placeholder
			args = fill(start+i, args)
		}
		if _, err := db.ExecContext(ctx, prefix+strings.Join(values, ","), args...); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
