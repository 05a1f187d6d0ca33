package report

import "testing"

func TestClassifyKnownTypes(t *testing.T) {
	cases := map[string]Type{
		"AgentSummary_02-01-2025_02-01-2025.xls":  TypeAgentSummary,
		"AgentTimecard_02-01-2025_02-01-2025.csv": TypeAgentTimecard,
		"CallDetail_daily.csv":                    TypeCallDetail,
		"AbandonedCalls_02-01-2025_02-01-2025.csv": TypeAbandonedCalls,
		"ShortAbandons_feb.csv":                    TypeShortAbandons,
		"queuesummary_export.csv":                  TypeQueueSummary,
		"SkillSummary.xlsx":                        TypeSkillSummary,
		"ServiceLevel_02-01-2025_02-01-2025.xls":   TypeServiceLevel,
		"OutboundSummary.csv":                      TypeOutboundSummary,
		"DispositionCodes_export.csv":              TypeDispositionCodes,
		"CallbackDetail_export.csv":                TypeCallbackDetail,
		"SurveyResults_export.csv":                 TypeSurveyResults,
	}
	for filename, want := range cases {
		if got := Classify(filename); got != want {
			t.Errorf("Classify(%q) = %q, want %q", filename, got, want)
		}
	}
}

func TestClassifyUnknownReturnsEmpty(t *testing.T) {
	for _, filename := range []string{"randomfile.csv", "export.xls", ""} {
		if got := Classify(filename); got != "" {
			t.Errorf("Classify(%q) = %q, want empty", filename, got)
		}
	}
}

func TestExtractDateRange(t *testing.T) {
	start, end := ExtractDateRange("AgentSummary_01-30-2025_02-01-2025.xls")
	if start.IsZero() || end.IsZero() {
		t.Fatal("expected range")
	}
	if got := start.Format(DateLayout); got != "2025-01-30" {
		t.Errorf("start = %s", got)
	}
	if got := end.Format(DateLayout); got != "2025-02-01" {
		t.Errorf("end = %s", got)
	}
}

func TestExtractDateRangeAbsent(t *testing.T) {
	start, end := ExtractDateRange("AgentSummary.xls")
	if !start.IsZero() || !end.IsZero() {
		t.Fatalf("expected zero range, got %v %v", start, end)
	}
}

func TestRowsCountAndMerge(t *testing.T) {
	a := &Rows{AgentSummaries: []AgentSummaryRow{{AgentID: "a1"}, {AgentID: "a2"}}}
	b := &Rows{AbandonedCalls: []AbandonedCallRow{{CallID: "c1"}}}
	a.Merge(b)
	if a.Count() != 3 {
		t.Fatalf("count = %d, want 3", a.Count())
	}
	a.Merge(nil)
	if a.Count() != 3 {
		t.Fatalf("merge nil changed count to %d", a.Count())
	}
}
