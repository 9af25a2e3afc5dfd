package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/playtime-tracker/internal/domain"
	"github.com/user/playtime-tracker/internal/domain/mocks"
)

func TestSendDaily(t *testing.T) {
	now := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

	t.Run("renders daily rows and top players", func(t *testing.T) {
		stats := &mocks.MockStatsRepository{
			Daily: []domain.PlayerDailyPlaytime{
				{SteamID: "111", Username: "alice", Sessions: 2, Seconds: 7200},
				{SteamID: "222", Username: "bob", Sessions: 1, Seconds: 1800},
			},
			Top: []domain.PlayerPlaytime{
				{SteamID: "111", Username: "alice", TotalSeconds: 360000},
				{SteamID: "222", Username: "bob", TotalSeconds: 180000},
			},
		}
		push := &mocks.MockNotifier{}
		uc := NewReportUseCase(stats, push, testLogger())
		uc.now = func() time.Time { return now }

		if err := uc.SendDaily(context.Background()); err != nil {
			t.Fatalf("SendDaily: %v", err)
		}

		if got := stats.DailyDates; len(got) != 1 || got[0] != "2026-03-10" {
			t.Errorf("queried dates %v, want [2026-03-10]", got)
		}

		sent := push.Sent()
		if len(sent) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(sent))
		}
		n := sent[0]
		if n.Title != "📊 Daily playtime report" {
			t.Errorf("title: got %q", n.Title)
		}
		if len(n.Fields) != 2 {
			t.Fatalf("expected 2 fields, got %d", len(n.Fields))
		}
		if n.Fields[0].Name != "📅 2026-03-10" {
			t.Errorf("daily field name: got %q", n.Fields[0].Name)
		}
		if !strings.Contains(n.Fields[0].Value, "**alice**: 2h 0m (2 sessions)") {
			t.Errorf("daily field missing alice row: %q", n.Fields[0].Value)
		}
		if !strings.Contains(n.Fields[1].Value, "1. **alice**: 100.0h") {
			t.Errorf("top field missing alice row: %q", n.Fields[1].Value)
		}
	})

	t.Run("empty day still reports", func(t *testing.T) {
		stats := &mocks.MockStatsRepository{}
		push := &mocks.MockNotifier{}
		uc := NewReportUseCase(stats, push, testLogger())
		uc.now = func() time.Time { return now }

		if err := uc.SendDaily(context.Background()); err != nil {
			t.Fatalf("SendDaily: %v", err)
		}
		sent := push.Sent()
		if len(sent) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(sent))
		}
		if sent[0].Fields[0].Value != "No recorded playtime." {
			t.Errorf("empty day field: got %q", sent[0].Fields[0].Value)
		}
	})

	t.Run("stats failure skips the push", func(t *testing.T) {
		stats := &mocks.MockStatsRepository{DailyErr: errors.New("connection refused")}
		push := &mocks.MockNotifier{}
		uc := NewReportUseCase(stats, push, testLogger())

		if err := uc.SendDaily(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if len(push.Sent()) != 0 {
			t.Errorf("notification pushed despite stats failure")
		}
	})

	t.Run("notifier failure surfaces", func(t *testing.T) {
		stats := &mocks.MockStatsRepository{}
		push := &mocks.MockNotifier{NotifyErr: errors.New("webhook unreachable")}
		uc := NewReportUseCase(stats, push, testLogger())

		if err := uc.SendDaily(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestFormatPlaytime(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0h 0m"},
		{59, "0h 0m"},
		{60, "0h 1m"},
		{3690, "1h 1m"},
		{86399, "23h 59m"},
	}
	for _, tt := range tests {
		if got := FormatPlaytime(tt.seconds); got != tt.want {
			t.Errorf("FormatPlaytime(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
