package notify

import (
	"fmt"
	"strings"

	"reportflow/internal/kpi"
	"reportflow/internal/report"
)

// BuildMessage renders the chat summary for a computed day. The leading
// line differs for partial vs complete results; downstream consumers use
// it to know whether a follow-up complete notification is still coming.
func BuildMessage(date string, res *kpi.Result, missing []report.Type) string {
	d := res.Daily
	var b strings.Builder
	if len(missing) > 0 {
		fmt.Fprintf(&b, "Agent Summary processed for %s (%d report types still pending)\n", date, len(missing))
	} else {
		fmt.Fprintf(&b, "All 12 reports received and processed for %s\n", date)
	}
	fmt.Fprintf(&b, "%d agents, %d calls (%d answered, %d abandoned)\n", d.TotalAgents, d.TotalCalls, d.AnsweredCalls, d.AbandonedCalls)
	fmt.Fprintf(&b, "Abandon rate %.2f%%, service level %.2f%%, AHT %.0fs", d.AbandonRatePct, d.ServiceLevelPct, d.AvgHandleSec)
	if d.Delta != nil {
		fmt.Fprintf(&b, "\nvs %s: calls %+d, abandon rate %+.2f pts, service level %+.2f pts",
			d.Delta.PrevDate, d.Delta.TotalCalls, d.Delta.AbandonRatePct, d.Delta.ServiceLevelPct)
	}
	if n := len(res.Anomalies); n > 0 {
		fmt.Fprintf(&b, "\n%d anomalies flagged", n)
	}
	return b.String()
}
