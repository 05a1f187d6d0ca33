package report

// Type identifies one of the fixed report exports the call center
// produces each day.
type Type string

const (
	TypeAgentSummary     Type = "agent_summary"
	TypeAgentTimecard    Type = "agent_timecard"
	TypeCallDetail       Type = "call_detail"
	TypeAbandonedCalls   Type = "abandoned_calls"
	TypeShortAbandons    Type = "short_abandons"
	TypeQueueSummary     Type = "queue_summary"
	TypeSkillSummary     Type = "skill_summary"
	TypeServiceLevel     Type = "service_level"
	TypeOutboundSummary  Type = "outbound_summary"
	TypeDispositionCodes Type = "disposition_codes"
	TypeCallbackDetail   Type = "callback_detail"
	TypeSurveyResults    Type = "survey_results"
)

// KeyType is the one report that carries per-agent aggregate figures.
// Daily computation is gated on its presence.
const KeyType = TypeAgentSummary

// AllTypes is the fixed universe a day's checklist is evaluated against.
var AllTypes = []Type{
	TypeAgentSummary,
	TypeAgentTimecard,
	TypeCallDetail,
	TypeAbandonedCalls,
	TypeShortAbandons,
	TypeQueueSummary,
	TypeSkillSummary,
	TypeServiceLevel,
	TypeOutboundSummary,
	TypeDispositionCodes,
	TypeCallbackDetail,
	TypeSurveyResults,
}

type AgentSummaryRow struct {
	AgentID      string `json:"agent_id"`
	AgentName    string `json:"agent_name"`
	CallsHandled int    `json:"calls_handled"`
	TalkSec      int    `json:"talk_sec"`
	HoldSec      int    `json:"hold_sec"`
	WrapSec      int    `json:"wrap_sec"`
	LoginSec     int    `json:"login_sec"`
}

type AgentTimecardRow struct {
	AgentID     string `json:"agent_id"`
	State       string `json:"state"`
	DurationSec int    `json:"duration_sec"`
}

type CallDetailRow struct {
	CallID   string `json:"call_id"`
	Skill    string `json:"skill"`
	AgentID  string `json:"agent_id"`
	QueueSec int    `json:"queue_sec"`
	TalkSec  int    `json:"talk_sec"`
}

type AbandonedCallRow struct {
	CallID  string `json:"call_id"`
	Skill   string `json:"skill"`
	WaitSec int    `json:"wait_sec"`
}

type QueueSummaryRow struct {
	Queue     string `json:"queue"`
	Offered   int    `json:"offered"`
	Answered  int    `json:"answered"`
	Abandoned int    `json:"abandoned"`
}

type SkillSummaryRow struct {
	Skill       string `json:"skill"`
	Offered     int    `json:"offered"`
	Answered    int    `json:"answered"`
	AvgSpeedSec int    `json:"avg_speed_sec"`
}

type ServiceLevelRow struct {
	Skill         string `json:"skill"`
	Offered       int    `json:"offered"`
	AnsweredInSLA int    `json:"answered_in_sla"`
}

type OutboundSummaryRow struct {
	AgentID    string `json:"agent_id"`
	Calls      int    `json:"calls"`
	ConnectSec int    `json:"connect_sec"`
}

type DispositionRow struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

type CallbackRow struct {
	CallID string `json:"call_id"`
	Skill  string `json:"skill"`
	Kept   bool   `json:"kept"`
}

type SurveyResultRow struct {
	CallID string `json:"call_id"`
	Score  int    `json:"score"`
}

// Rows is the bag of per-type row collections. A single report record
// populates exactly one collection; a merged day may populate many.
// Short-abandon exports feed the AbandonedCalls collection, so twelve
// report types map onto eleven collections.
type Rows struct {
	AgentSummaries    []AgentSummaryRow    `json:"agent_summaries,omitempty"`
	AgentTimecards    []AgentTimecardRow   `json:"agent_timecards,omitempty"`
	CallDetails       []CallDetailRow      `json:"call_details,omitempty"`
	AbandonedCalls    []AbandonedCallRow   `json:"abandoned_calls,omitempty"`
	QueueSummaries    []QueueSummaryRow    `json:"queue_summaries,omitempty"`
	SkillSummaries    []SkillSummaryRow    `json:"skill_summaries,omitempty"`
	ServiceLevels     []ServiceLevelRow    `json:"service_levels,omitempty"`
	OutboundSummaries []OutboundSummaryRow `json:"outbound_summaries,omitempty"`
	Dispositions      []DispositionRow     `json:"dispositions,omitempty"`
	Callbacks         []CallbackRow        `json:"callbacks,omitempty"`
	SurveyResults     []SurveyResultRow    `json:"survey_results,omitempty"`
}

// Count returns the total number of rows across all collections.
func (r *Rows) Count() int {
	if r == nil {
		return 0
	}
	return len(r.AgentSummaries) + len(r.AgentTimecards) + len(r.CallDetails) +
		len(r.AbandonedCalls) + len(r.QueueSummaries) + len(r.SkillSummaries) +
		len(r.ServiceLevels) + len(r.OutboundSummaries) + len(r.Dispositions) +
		len(r.Callbacks) + len(r.SurveyResults)
}

// Merge appends every collection of other into r.
func (r *Rows) Merge(other *Rows) {
	if other == nil {
		return
	}
	r.AgentSummaries = append(r.AgentSummaries, other.AgentSummaries...)
	r.AgentTimecards = append(r.AgentTimecards, other.AgentTimecards...)
	r.CallDetails = append(r.CallDetails, other.CallDetails...)
	r.AbandonedCalls = append(r.AbandonedCalls, other.AbandonedCalls...)
	r.QueueSummaries = append(r.QueueSummaries, other.QueueSummaries...)
	r.SkillSummaries = append(r.SkillSummaries, other.SkillSummaries...)
	r.ServiceLevels = append(r.ServiceLevels, other.ServiceLevels...)
	r.OutboundSummaries = append(r.OutboundSummaries, other.OutboundSummaries...)
	r.Dispositions = append(r.Dispositions, other.Dispositions...)
	r.Callbacks = append(r.Callbacks, other.Callbacks...)
	r.SurveyResults = append(r.SurveyResults, other.SurveyResults...)
}

// Parser converts raw export bytes into typed rows for a classified
// report type. Implementations return an error satisfying
// errors.Is(err, ErrMalformed) when the bytes do not conform.
type Parser interface {
	Parse(data []byte, typ Type) (*Rows, error)
}
