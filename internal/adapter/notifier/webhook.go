package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/playtime-tracker/internal/domain"
)

const webhookTimeout = 5 * time.Second

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Webhook implements domain.Notifier against a Discord-compatible webhook
// URL. Pushes are rate limited so a burst of reconnects cannot get the
// webhook throttled upstream.
type Webhook struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewWebhook creates a webhook notifier allowing perMinute pushes with small
// bursts.
func NewWebhook(url string, perMinute int, logger *slog.Logger) *Webhook {
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: webhookTimeout},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 5),
		logger:  logger,
	}
}

// Notify posts the notification as a single embed.
func (n *Webhook) Notify(ctx context.Context, notif domain.Notification) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit: %w", err)
	}

	e := embed{
		Title:       notif.Title,
		Description: notif.Description,
		Color:       notif.Color,
	}
	if !notif.At.IsZero() {
		e.Timestamp = notif.At.Format(time.RFC3339)
	}
	for _, f := range notif.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}

	body, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
