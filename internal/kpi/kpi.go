package kpi

import (
	"time"

	"reportflow/internal/report"
)

// DailyKPIs is the per-day aggregate row, upserted keyed by ReportDate.
type DailyKPIs struct {
	ReportDate      string         `json:"report_date"`
	TotalCalls      int            `json:"total_calls"`
	AnsweredCalls   int            `json:"answered_calls"`
	AbandonedCalls  int            `json:"abandoned_calls"`
	OutboundCalls   int            `json:"outbound_calls"`
	TotalAgents     int            `json:"total_agents"`
	AvgHandleSec    float64        `json:"avg_handle_sec"`
	AbandonRatePct  float64        `json:"abandon_rate_pct"`
	ServiceLevelPct float64        `json:"service_level_pct"`
	AvgSurveyScore  float64        `json:"avg_survey_score"`
	IsPartial       bool           `json:"is_partial"`
	Enrichment      map[string]any `json:"enrichment,omitempty"`
	Delta           *Delta         `json:"delta,omitempty"`
	ComputedAt      time.Time      `json:"computed_at"`
}

// Delta carries day-over-day comparison against the nearest earlier date
// with stored KPIs. Nil on a DailyKPIs means no earlier date existed.
type Delta struct {
	PrevDate            string  `json:"prev_date"`
	PrevTotalCalls      int     `json:"prev_total_calls"`
	PrevTotalAgents     int     `json:"prev_total_agents"`
	PrevAbandonRatePct  float64 `json:"prev_abandon_rate_pct"`
	PrevServiceLevelPct float64 `json:"prev_service_level_pct"`
	TotalCalls          int     `json:"delta_total_calls"`
	TotalAgents         int     `json:"delta_total_agents"`
	AbandonRatePct      float64 `json:"delta_abandon_rate_pct"`
	ServiceLevelPct     float64 `json:"delta_service_level_pct"`
}

type AgentPerformance struct {
	AgentID      string  `json:"agent_id"`
	AgentName    string  `json:"agent_name"`
	CallsHandled int     `json:"calls_handled"`
	AvgHandleSec float64 `json:"avg_handle_sec"`
	OccupancyPct float64 `json:"occupancy_pct"`
}

type SkillAggregate struct {
	Skill           string  `json:"skill"`
	Offered         int     `json:"offered"`
	Answered        int     `json:"answered"`
	Abandoned       int     `json:"abandoned"`
	ServiceLevelPct float64 `json:"service_level_pct"`
	AvgSpeedSec     float64 `json:"avg_speed_sec"`
}

type Anomaly struct {
	Kind     string `json:"kind"`
	Subject  string `json:"subject"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"`
}

// Result bundles everything one computation pass produces for a date.
type Result struct {
	Daily     DailyKPIs          `json:"daily"`
	Agents    []AgentPerformance `json:"agents"`
	Skills    []SkillAggregate   `json:"skills"`
	Anomalies []Anomaly          `json:"anomalies"`
}

// Computer is the pure computation over a day's merged rows.
type Computer interface {
	Compute(rows *report.Rows) (*Result, error)
}
