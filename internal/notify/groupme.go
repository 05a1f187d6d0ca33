package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"reportflow/internal/kpi"
	"reportflow/internal/report"
)

// Notifier pushes a human-readable daily summary to a chat channel.
// Callers treat it as best-effort: failures are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, date string, res *kpi.Result, missing []report.Type) error
}

// GroupMe posts the summary to a GroupMe bot. An empty bot id disables
// the notifier.
type GroupMe struct {
	botID  string
	url    string
	client *http.Client
}

func NewGroupMe(botID, url string) *GroupMe {
	return &GroupMe{botID: botID, url: url, client: http.DefaultClient}
}

func (g *GroupMe) Notify(ctx context.Context, date string, res *kpi.Result, missing []report.Type) error {
	if g.botID == "" {
		return nil
	}
	payload := map[string]string{"text": BuildMessage(date, res, missing), "bot_id": g.botID}
	buf, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewBuffer(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("groupme status %d", resp.StatusCode)
	}
	return nil
}
