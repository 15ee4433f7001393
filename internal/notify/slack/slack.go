// Package slack delivers alerts to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"github.com/scmlabs/modsentry/internal/notify"
)

// Ensure Sender implements the notify.Sender interface.
var _ notify.Sender = (*Sender)(nil)

// Sender posts messages to a Slack incoming webhook.
type Sender struct {
	client     *http.Client
	webhookURL string
	channel    string
}

type webhookPayload struct {
	Channel   string `json:"channel"`
	Text      string `json:"text"`
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
}

// New creates a new Slack webhook sender.
func New(webhookURL, channel string) (*Sender, error) {
	if webhookURL == "" {
		return nil, errors.New("Slack webhook URL is required")
	}
	return &Sender{
		client:     &http.Client{},
		webhookURL: webhookURL,
		channel:    channel,
	}, nil
}

func (s *Sender) Channel() models.Channel { return models.ChannelSlack }

// Send posts the alert to the configured webhook.
func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	payload := webhookPayload{
		Channel:   s.channel,
		Text:      "🚨 " + msg.Subject + "\n\n" + msg.Body,
		Username:  "ModSentry Bot",
		IconEmoji: ":warning:",
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "error marshaling Slack payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return errors.Wrap(err, "error creating Slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "error calling Slack webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.Errorf("Slack webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
