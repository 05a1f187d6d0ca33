package report

import (
	"errors"
	"testing"
)

func TestCSVParseAgentSummary(t *testing.T) {
	data := []byte("agent_id,agent_name,calls_handled,talk_sec,hold_sec,wrap_sec,login_sec\n" +
		"a1,Alice,10,1200,100,200,28800\n" +
		"a2,Bob,8,1000,80,150,28800\n")
	rows, err := NewCSVParser().Parse(data, TypeAgentSummary)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows.AgentSummaries) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows.AgentSummaries))
	}
	if rows.AgentSummaries[0].CallsHandled != 10 {
		t.Errorf("calls_handled = %d", rows.AgentSummaries[0].CallsHandled)
	}
	if rows.Count() != 2 {
		t.Errorf("count = %d", rows.Count())
	}
}

func TestCSVParseSharedAbandonedCollection(t *testing.T) {
	data := []byte("call_id,skill,wait_sec\nc1,billing,45\n")
	for _, typ := range []Type{TypeAbandonedCalls, TypeShortAbandons} {
		rows, err := NewCSVParser().Parse(data, typ)
		if err != nil {
			t.Fatalf("parse %s: %v", typ, err)
		}
		if len(rows.AbandonedCalls) != 1 {
			t.Fatalf("%s: expected abandoned collection populated", typ)
		}
	}
}

func TestCSVParseMissingColumn(t *testing.T) {
	data := []byte("agent_id,agent_name\na1,Alice\n")
	_, err := NewCSVParser().Parse(data, TypeAgentSummary)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestCSVParseBadNumber(t *testing.T) {
	data := []byte("code,count\nRESOLVED,notanumber\n")
	_, err := NewCSVParser().Parse(data, TypeDispositionCodes)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestCSVParseEmptyFile(t *testing.T) {
	_, err := NewCSVParser().Parse(nil, TypeAgentSummary)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
