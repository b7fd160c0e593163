package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/serenity-care/dispatch/core/dispatch"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/infra/logger"
)

// WebhookConfig configures a gateway-backed channel. SMS and email providers
// both expose a single ingestion endpoint that takes the offer as JSON.
type WebhookConfig struct {
	URL       string `json:"url"`
	AuthToken string `json:"auth_token"`
	TimeoutMS int    `json:"timeout_ms"`
}

// WebhookChannel posts offers to an external SMS or email gateway.
type WebhookChannel struct {
	channel model.Channel
	url     string
	token   string
	client  *http.Client
	logger  logger.Logger
}

// NewWebhookChannel builds a channel for the given provider endpoint.
func NewWebhookChannel(channel model.Channel, cfg WebhookConfig) *WebhookChannel {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookChannel{
		channel: channel,
		url:     cfg.URL,
		token:   cfg.AuthToken,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.New(string(channel) + "_channel"),
	}
}

type webhookPayload struct {
	NotificationID string `json:"notification_id"`
	Channel        string `json:"channel"`
	WorkerID       string `json:"worker_id"`
	Body           string `json:"body"`
}

// Send posts the offer to the gateway. Any non-2xx status is an error.
func (w *WebhookChannel) Send(ctx context.Context, msg dispatch.Message) error {
	body := fmt.Sprintf("Open visit for %s at %s, %s to %s (%.1f mi, %d min travel). Reply to accept.",
		msg.ClientName, msg.ClientAddress,
		msg.Start.Format(time.Kitchen), msg.End.Format(time.Kitchen),
		msg.Miles, msg.TravelMinutes)

	payload, err := json.Marshal(webhookPayload{
		NotificationID: msg.NotificationID,
		Channel:        string(w.channel),
		WorkerID:       msg.WorkerID,
		Body:           body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, b)
	}
	w.logger.Infof("delivered %s offer %s to gateway", w.channel, msg.NotificationID)
	return nil
}
