// Package notify posts ntfy-style push notifications when a watched response
// changes.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/diffjam/internal/session"
)

// maxMessageBytes keeps notification bodies short; the full report stays in
// the API and the journal.
const maxMessageBytes = 2048

// Notifier sends a message for every changed report.
type Notifier struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

// New returns a notifier for endpoint. A nil client uses http.DefaultClient.
func New(client *http.Client, endpoint string) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Notifier{client: client, endpoint: endpoint, timeout: 5 * time.Second}
}

// OnReport has the session.Listener signature. Unchanged reports are ignored
// and delivery runs in the background.
func (n *Notifier) OnReport(evt session.Event) {
	if !evt.Changed {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := Send(ctx, n.client, n.endpoint, "Diff JAM: "+evt.Key, clip(evt.Report)); err != nil {
			slog.Warn("Report notification failed", "session_id", evt.SessionID, "error", err)
		}
	}()
}

// Send posts message to endpoint with an optional Title header.
func Send(ctx context.Context, client *http.Client, endpoint, title, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

func clip(s string) string {
	if len(s) <= maxMessageBytes {
		return s
	}
	return s[:maxMessageBytes] + "\n…"
}
