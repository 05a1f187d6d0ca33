package reconcile

import (
	"context"

	"reportflow/internal/report"
	"reportflow/internal/store"
)

// Checklist is the derived received/missing view for one date. Failed
// records do not count as received.
type Checklist struct {
	Date          string        `json:"date"`
	Received      []report.Type `json:"received"`
	Missing       []report.Type `json:"missing"`
	Complete      bool          `json:"complete"`
	ReceivedCount int           `json:"received_count"`
	TotalCount    int           `json:"total_count"`
}

// HasKeyType reports whether the key report type has been received.
func (c Checklist) HasKeyType() bool {
	for _, t := range c.Received {
		if t == report.KeyType {
			return true
		}
	}
	return false
}

func buildChecklist(date string, received []report.Type) Checklist {
	got := make(map[report.Type]struct{}, len(received))
	for _, t := range received {
		got[t] = struct{}{}
	}
	c := Checklist{Date: date, TotalCount: len(report.AllTypes)}
	for _, t := range report.AllTypes {
		if _, ok := got[t]; ok {
			c.Received = append(c.Received, t)
		} else {
			c.Missing = append(c.Missing, t)
		}
	}
	c.ReceivedCount = len(c.Received)
	c.Complete = len(c.Missing) == 0
	return c
}

// Checklist computes the checklist for a date from stored records.
func (e *Engine) Checklist(ctx context.Context, date string) (Checklist, error) {
	received, err := e.store.ReceivedTypes(ctx, date)
	if err != nil {
		return Checklist{}, err
	}
	return buildChecklist(date, received), nil
}

// mergeRecords folds every non-failed record's rows into one set and
// returns the merged rows with the contributing record ids.
func mergeRecords(records []store.ReportRecord) (*report.Rows, []int64) {
	merged := &report.Rows{}
	var ids []int64
	for _, rec := range records {
		if rec.Status == store.StatusFailed {
			continue
		}
		merged.Merge(rec.Rows)
		ids = append(ids, rec.ID)
	}
	return merged, ids
}
