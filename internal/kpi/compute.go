package kpi

import (
	"fmt"
	"math"
	"sort"

	"reportflow/internal/report"
)

// Anomaly thresholds. Values outside these bounds produce a row in the
// anomalies table for the date.
const (
	highAbandonRatePct = 10.0
	highOccupancyPct   = 95.0
	lowOccupancyPct    = 20.0
	slowAnswerSec      = 120
)

// StandardComputer derives the daily aggregates from whichever row
// collections the merged set contains. It is pure: no I/O, no clock.
type StandardComputer struct{}

func NewComputer() *StandardComputer { return &StandardComputer{} }

// Compute never fails on an empty merged set: a header-only export is
// valid input and yields a zero-valued day.
func (c *StandardComputer) Compute(rows *report.Rows) (*Result, error) {
	if rows == nil {
		rows = &report.Rows{}
	}

	res := &Result{}
	res.Agents = computeAgents(rows.AgentSummaries)
	res.Skills = computeSkills(rows)

	answered := 0
	handleSec := 0
	agents := map[string]struct{}{}
	for _, a := range rows.AgentSummaries {
		answered += a.CallsHandled
		handleSec += a.TalkSec + a.HoldSec + a.WrapSec
		agents[a.AgentID] = struct{}{}
	}
	abandoned := len(rows.AbandonedCalls)

	d := DailyKPIs{
		TotalCalls:     answered + abandoned,
		AnsweredCalls:  answered,
		AbandonedCalls: abandoned,
		TotalAgents:    len(agents),
	}
	if answered > 0 {
		d.AvgHandleSec = round2(float64(handleSec) / float64(answered))
	}
	if d.TotalCalls > 0 {
		d.AbandonRatePct = round2(float64(abandoned) / float64(d.TotalCalls) * 100)
	}
	d.ServiceLevelPct = serviceLevel(rows.ServiceLevels)
	for _, o := range rows.OutboundSummaries {
		d.OutboundCalls += o.Calls
	}
	d.AvgSurveyScore = surveyAverage(rows.SurveyResults)
	d.Enrichment = map[string]any{
		"row_counts": map[string]int{
			"agent_summaries": len(rows.AgentSummaries),
			"call_details":    len(rows.CallDetails),
			"abandoned":       len(rows.AbandonedCalls),
			"dispositions":    len(rows.Dispositions),
			"callbacks":       len(rows.Callbacks),
			"surveys":         len(rows.SurveyResults),
		},
	}
	res.Daily = d

	res.Anomalies = detectAnomalies(d, res.Agents, res.Skills)
	return res, nil
}

func computeAgents(summaries []report.AgentSummaryRow) []AgentPerformance {
	byID := map[string]*AgentPerformance{}
	busy := map[string]int{}
	login := map[string]int{}
	order := []string{}
	for _, a := range summaries {
		p, ok := byID[a.AgentID]
		if !ok {
			p = &AgentPerformance{AgentID: a.AgentID, AgentName: a.AgentName}
			byID[a.AgentID] = p
			order = append(order, a.AgentID)
		}
		p.CallsHandled += a.CallsHandled
		busy[a.AgentID] += a.TalkSec + a.HoldSec + a.WrapSec
		login[a.AgentID] += a.LoginSec
	}
	out := make([]AgentPerformance, 0, len(order))
	for _, id := range order {
		p := byID[id]
		if p.CallsHandled > 0 {
			p.AvgHandleSec = round2(float64(busy[id]) / float64(p.CallsHandled))
		}
		if login[id] > 0 {
			p.OccupancyPct = round2(float64(busy[id]) / float64(login[id]) * 100)
		}
		out = append(out, *p)
	}
	return out
}

func computeSkills(rows *report.Rows) []SkillAggregate {
	bySkill := map[string]*SkillAggregate{}
	get := func(skill string) *SkillAggregate {
		if skill == "" {
			skill = "unknown"
		}
		s, ok := bySkill[skill]
		if !ok {
			s = &SkillAggregate{Skill: skill}
			bySkill[skill] = s
		}
		return s
	}
	for _, r := range rows.SkillSummaries {
		s := get(r.Skill)
		s.Offered += r.Offered
		s.Answered += r.Answered
		s.AvgSpeedSec = float64(r.AvgSpeedSec)
	}
	for _, r := range rows.AbandonedCalls {
		get(r.Skill).Abandoned++
	}
	for _, r := range rows.ServiceLevels {
		s := get(r.Skill)
		if r.Offered > 0 {
			s.ServiceLevelPct = round2(float64(r.AnsweredInSLA) / float64(r.Offered) * 100)
		}
	}
	out := make([]SkillAggregate, 0, len(bySkill))
	for _, s := range bySkill {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Skill < out[j].Skill })
	return out
}

func serviceLevel(rows []report.ServiceLevelRow) float64 {
	offered, within := 0, 0
	for _, r := range rows {
		offered += r.Offered
		within += r.AnsweredInSLA
	}
	if offered == 0 {
		return 0
	}
	return round2(float64(within) / float64(offered) * 100)
}

func surveyAverage(rows []report.SurveyResultRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rows {
		sum += r.Score
	}
	return round2(float64(sum) / float64(len(rows)))
}

func detectAnomalies(d DailyKPIs, agents []AgentPerformance, skills []SkillAggregate) []Anomaly {
	var out []Anomaly
	if d.AbandonRatePct > highAbandonRatePct {
		out = append(out, Anomaly{
			Kind:     "high_abandon_rate",
			Subject:  "daily",
			Detail:   fmt.Sprintf("abandon rate %.2f%% exceeds %.0f%%", d.AbandonRatePct, highAbandonRatePct),
			Severity: "high",
		})
	}
	for _, a := range agents {
		if a.OccupancyPct > highOccupancyPct {
			out = append(out, Anomaly{
				Kind:     "agent_over_occupied",
				Subject:  a.AgentID,
				Detail:   fmt.Sprintf("occupancy %.2f%%", a.OccupancyPct),
				Severity: "medium",
			})
		}
		if a.OccupancyPct > 0 && a.OccupancyPct < lowOccupancyPct {
			out = append(out, Anomaly{
				Kind:     "agent_under_occupied",
				Subject:  a.AgentID,
				Detail:   fmt.Sprintf("occupancy %.2f%%", a.OccupancyPct),
				Severity: "low",
			})
		}
	}
	for _, s := range skills {
		if s.AvgSpeedSec > slowAnswerSec {
			out = append(out, Anomaly{
				Kind:     "slow_answer",
				Subject:  s.Skill,
				Detail:   fmt.Sprintf("avg speed of answer %.0fs", s.AvgSpeedSec),
				Severity: "medium",
			})
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round2 is exported for delta math, which shares the 2-decimal rule.
func Round2(v float64) float64 { return round2(v) }
