package report

import (
	"regexp"
	"strings"
	"time"
)

// filename tokens, checked in order. ShortAbandons must precede
// AbandonedCalls only by convention; the tokens do not overlap.
var tokenTypes = []struct {
	token string
	typ   Type
}{
	{"agentsummary", TypeAgentSummary},
	{"agenttimecard", TypeAgentTimecard},
	{"calldetail", TypeCallDetail},
	{"abandonedcalls", TypeAbandonedCalls},
	{"shortabandons", TypeShortAbandons},
	{"queuesummary", TypeQueueSummary},
	{"skillsummary", TypeSkillSummary},
	{"servicelevel", TypeServiceLevel},
	{"outboundsummary", TypeOutboundSummary},
	{"dispositioncodes", TypeDispositionCodes},
	{"callbackdetail", TypeCallbackDetail},
	{"surveyresults", TypeSurveyResults},
}

// Classify maps a filename to a report type, or "" when no known token
// is present. Matching is case-insensitive on the base name.
func Classify(filename string) Type {
	lower := strings.ToLower(filename)
	for _, tt := range tokenTypes {
		if strings.Contains(lower, tt.token) {
			return tt.typ
		}
	}
	return ""
}

const rangeDateLayout = "01-02-2006"

var rangeRe = regexp.MustCompile(`(\d{2}-\d{2}-\d{4})_(\d{2}-\d{2}-\d{4})`)

// ExtractDateRange pulls the embedded MM-DD-YYYY_MM-DD-YYYY range out of
// a filename. Both returns are zero when the filename carries no range.
// The report date is the end of the range: a multi-day export is filed
// under its last covered day.
func ExtractDateRange(filename string) (start, end time.Time) {
	m := rangeRe.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, time.Time{}
	}
	s, err := time.Parse(rangeDateLayout, m[1])
	if err != nil {
		return time.Time{}, time.Time{}
	}
	e, err := time.Parse(rangeDateLayout, m[2])
	if err != nil {
		return time.Time{}, time.Time{}
	}
	return s, e
}

// DateLayout is the canonical report-date format used across the store.
const DateLayout = "2006-01-02"
