package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/commitly/commitly/internal/config"
	log "github.com/sirupsen/logrus"
)

// Notifier delivers a fired reminder to the user-facing surface.
type Notifier interface {
	Notify(ctx context.Context, reminder Reminder) error
}

// NewNotifier picks the delivery mechanism from configuration: a webhook when
// one is configured, plain logging otherwise.
func NewNotifier(cfg config.Reminder) Notifier {
	if cfg.WebhookUrl != "" {
		return &WebhookNotifier{
			url:    cfg.WebhookUrl,
			client: &http.Client{Timeout: 10 * time.Second},
		}
	}
	return &LogNotifier{}
}

// LogNotifier writes fired reminders to the application log.
type LogNotifier struct{}

func (n *LogNotifier) Notify(_ context.Context, reminder Reminder) error {
	log.Infof("reminder: %q at %s (%s)", reminder.Title, reminder.TimeText, reminder.URL)
	return nil
}

// WebhookNotifier POSTs the reminder payload as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func (n *WebhookNotifier) Notify(ctx context.Context, reminder Reminder) error {
	body, err := json.Marshal(reminder.Payload())
	if err != nil {
		return fmt.Errorf("could not marshal reminder payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("reminder webhook call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("reminder webhook returned status %d", resp.StatusCode)
	}
	return nil
}
