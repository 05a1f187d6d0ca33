package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed marks export bytes that do not match the expected tabular
// shape for their classified type.
var ErrMalformed = errors.New("malformed report file")

// CSVParser is the default Parser for comma-separated exports. Each
// report type expects a header row naming its columns; extra columns are
// ignored, missing ones fail the parse.
type CSVParser struct{}

func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) Parse(data []byte, typ Type) (*Rows, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	header := newHeader(records[0])
	body := records[1:]

	rows := &Rows{}
	switch typ {
	case TypeAgentSummary:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.AgentSummaries = append(rows.AgentSummaries, AgentSummaryRow{
				AgentID:      g.str("agent_id"),
				AgentName:    g.str("agent_name"),
				CallsHandled: g.num("calls_handled"),
				TalkSec:      g.num("talk_sec"),
				HoldSec:      g.num("hold_sec"),
				WrapSec:      g.num("wrap_sec"),
				LoginSec:     g.num("login_sec"),
			})
		})
	case TypeAgentTimecard:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.AgentTimecards = append(rows.AgentTimecards, AgentTimecardRow{
				AgentID:     g.str("agent_id"),
				State:       g.str("state"),
				DurationSec: g.num("duration_sec"),
			})
		})
	case TypeCallDetail:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.CallDetails = append(rows.CallDetails, CallDetailRow{
				CallID:   g.str("call_id"),
				Skill:    g.str("skill"),
				AgentID:  g.str("agent_id"),
				QueueSec: g.num("queue_sec"),
				TalkSec:  g.num("talk_sec"),
			})
		})
	case TypeAbandonedCalls, TypeShortAbandons:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.AbandonedCalls = append(rows.AbandonedCalls, AbandonedCallRow{
				CallID:  g.str("call_id"),
				Skill:   g.str("skill"),
				WaitSec: g.num("wait_sec"),
			})
		})
	case TypeQueueSummary:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.QueueSummaries = append(rows.QueueSummaries, QueueSummaryRow{
				Queue:     g.str("queue"),
				Offered:   g.num("offered"),
				Answered:  g.num("answered"),
				Abandoned: g.num("abandoned"),
			})
		})
	case TypeSkillSummary:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.SkillSummaries = append(rows.SkillSummaries, SkillSummaryRow{
				Skill:       g.str("skill"),
				Offered:     g.num("offered"),
				Answered:    g.num("answered"),
				AvgSpeedSec: g.num("avg_speed_sec"),
			})
		})
	case TypeServiceLevel:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.ServiceLevels = append(rows.ServiceLevels, ServiceLevelRow{
				Skill:         g.str("skill"),
				Offered:       g.num("offered"),
				AnsweredInSLA: g.num("answered_in_sla"),
			})
		})
	case TypeOutboundSummary:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.OutboundSummaries = append(rows.OutboundSummaries, OutboundSummaryRow{
				AgentID:    g.str("agent_id"),
				Calls:      g.num("calls"),
				ConnectSec: g.num("connect_sec"),
			})
		})
	case TypeDispositionCodes:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.Dispositions = append(rows.Dispositions, DispositionRow{
				Code:  g.str("code"),
				Count: g.num("count"),
			})
		})
	case TypeCallbackDetail:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.Callbacks = append(rows.Callbacks, CallbackRow{
				CallID: g.str("call_id"),
				Skill:  g.str("skill"),
				Kept:   g.boolean("kept"),
			})
		})
	case TypeSurveyResults:
		err = decodeRows(header, body, func(g *rowGetter) {
			rows.SurveyResults = append(rows.SurveyResults, SurveyResultRow{
				CallID: g.str("call_id"),
				Score:  g.num("score"),
			})
		})
	default:
		return nil, fmt.Errorf("%w: unknown report type %q", ErrMalformed, typ)
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		h[strings.ToLower(strings.TrimSpace(c))] = i
	}
	return h
}

// rowGetter reads named fields out of one CSV record, accumulating the
// first error it hits so decode callbacks stay flat.
type rowGetter struct {
	header header
	record []string
	err    error
}

func (g *rowGetter) field(name string) (string, bool) {
	idx, ok := g.header[name]
	if !ok {
		if g.err == nil {
			g.err = fmt.Errorf("%w: missing column %q", ErrMalformed, name)
		}
		return "", false
	}
	if idx >= len(g.record) {
		if g.err == nil {
			g.err = fmt.Errorf("%w: short record for column %q", ErrMalformed, name)
		}
		return "", false
	}
	return strings.TrimSpace(g.record[idx]), true
}

func (g *rowGetter) str(name string) string {
	v, _ := g.field(name)
	return v
}

func (g *rowGetter) num(name string) int {
	v, ok := g.field(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if g.err == nil {
			g.err = fmt.Errorf("%w: column %q: %v", ErrMalformed, name, err)
		}
		return 0
	}
	return n
}

func (g *rowGetter) boolean(name string) bool {
	v, ok := g.field(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		if g.err == nil {
			g.err = fmt.Errorf("%w: column %q: %v", ErrMalformed, name, err)
		}
		return false
	}
	return b
}

func decodeRows(h header, body [][]string, decode func(*rowGetter)) error {
	for _, record := range body {
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		g := &rowGetter{header: h, record: record}
		decode(g)
		if g.err != nil {
			return g.err
		}
	}
	return nil
}
