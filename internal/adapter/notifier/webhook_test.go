package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/playtime-tracker/internal/domain"
)

func TestWebhookNotify(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("posts a single embed", func(t *testing.T) {
		var got webhookPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method %s, want POST", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type %q", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		wh := NewWebhook(srv.URL, 60, log)
		at := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
		err := wh.Notify(context.Background(), domain.Notification{
			Title:       "🎮 Player connected",
			Description: "**dujjonku** joined the server!",
			Color:       0x00FF00,
			At:          at,
			Fields: []domain.NotificationField{
				{Name: "Steam ID", Value: "`76561198314730173`", Inline: true},
			},
		})
		if err != nil {
			t.Fatalf("Notify: %v", err)
		}

		if len(got.Embeds) != 1 {
			t.Fatalf("expected 1 embed, got %d", len(got.Embeds))
		}
		e := got.Embeds[0]
		if e.Title != "🎮 Player connected" || e.Color != 0x00FF00 {
			t.Errorf("unexpected embed: %+v", e)
		}
		if e.Timestamp != at.Format(time.RFC3339) {
			t.Errorf("timestamp: got %q", e.Timestamp)
		}
		if len(e.Fields) != 1 || e.Fields[0].Name != "Steam ID" || !e.Fields[0].Inline {
			t.Errorf("unexpected fields: %+v", e.Fields)
		}
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		wh := NewWebhook(srv.URL, 60, log)
		if err := wh.Notify(context.Background(), domain.Notification{Title: "t"}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("cancelled context aborts the rate limiter wait", func(t *testing.T) {
		wh := NewWebhook("http://localhost:0", 1, log)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := wh.Notify(ctx, domain.Notification{Title: "t"}); err == nil {
			t.Fatal("expected error")
		}
	})
}
