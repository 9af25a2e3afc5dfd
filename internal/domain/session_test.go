package domain

import (
	"testing"
	"time"
)

func TestSecondsBetween(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want int
	}{
		{"plain range", "10:00:00", "11:01:30", 3690},
		{"to day end", "23:58:30", "23:59:59", 89},
		{"full day", "00:00:00", "23:59:59", 86399},
		{"zero", "12:00:00", "12:00:00", 0},
		{"inverted clamps to zero", "14:00:00", "13:00:00", 0},
		{"unparseable clamps to zero", "not a time", "13:00:00", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SecondsBetween(tt.from, tt.to); got != tt.want {
				t.Errorf("SecondsBetween(%q, %q) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestSplitAtMidnights(t *testing.T) {
	open := Session{
		ID:            7,
		SteamID:       "76561198314730173",
		SessionHandle: "2806406146",
		Username:      "dujjonku",
		Date:          "2026-03-10",
		ConnectTime:   "23:58:30",
	}

	t.Run("same day close has no rollover", func(t *testing.T) {
		s := open
		s.ConnectTime = "10:00:00"
		at := time.Date(2026, 3, 10, 11, 1, 30, 0, time.UTC)

		got := SplitAtMidnights(s, at)
		if got.DisconnectTime != "11:01:30" {
			t.Errorf("disconnect time: got %q", got.DisconnectTime)
		}
		if got.PlaytimeSeconds != 3690 {
			t.Errorf("playtime: got %d, want 3690", got.PlaytimeSeconds)
		}
		if len(got.Rollover) != 0 {
			t.Errorf("expected no rollover rows, got %d", len(got.Rollover))
		}
	})

	t.Run("single midnight yields one rollover row", func(t *testing.T) {
		at := time.Date(2026, 3, 11, 0, 1, 10, 0, time.UTC)

		got := SplitAtMidnights(open, at)
		if got.DisconnectTime != DayEndClock {
			t.Errorf("close time: got %q, want %q", got.DisconnectTime, DayEndClock)
		}
		if got.PlaytimeSeconds != 89 {
			t.Errorf("close playtime: got %d, want 89", got.PlaytimeSeconds)
		}
		if len(got.Rollover) != 1 {
			t.Fatalf("expected 1 rollover row, got %d", len(got.Rollover))
		}
		seg := got.Rollover[0]
		if seg.Date != "2026-03-11" || seg.ConnectTime != DayStartClock || seg.DisconnectTime != "00:01:10" {
			t.Errorf("unexpected rollover row: %+v", seg)
		}
		if seg.PlaytimeSeconds != 70 {
			t.Errorf("rollover playtime: got %d, want 70", seg.PlaytimeSeconds)
		}
		if seg.SteamID != open.SteamID || seg.SessionHandle != open.SessionHandle || seg.Username != open.Username {
			t.Errorf("rollover row lost identity: %+v", seg)
		}
		if got.TotalSeconds() != 159 {
			t.Errorf("total: got %d, want 159", got.TotalSeconds())
		}
	})

	t.Run("multiple midnights fill intervening days", func(t *testing.T) {
		s := open
		s.ConnectTime = "22:00:00"
		at := time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC)

		got := SplitAtMidnights(s, at)
		if got.PlaytimeSeconds != 7199 {
			t.Errorf("close playtime: got %d, want 7199", got.PlaytimeSeconds)
		}
		if len(got.Rollover) != 2 {
			t.Fatalf("expected 2 rollover rows, got %d", len(got.Rollover))
		}
		full := got.Rollover[0]
		if full.Date != "2026-03-11" || full.ConnectTime != DayStartClock || full.DisconnectTime != DayEndClock || full.PlaytimeSeconds != 86399 {
			t.Errorf("unexpected intervening day row: %+v", full)
		}
		last := got.Rollover[1]
		if last.Date != "2026-03-12" || last.DisconnectTime != "01:00:00" || last.PlaytimeSeconds != 3600 {
			t.Errorf("unexpected final day row: %+v", last)
		}
	})

	t.Run("event date before open date closes without split", func(t *testing.T) {
		s := open
		s.Date = "2026-03-15"
		s.ConnectTime = "01:00:00"
		at := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)

		got := SplitAtMidnights(s, at)
		if len(got.Rollover) != 0 {
			t.Errorf("expected no rollover rows, got %d", len(got.Rollover))
		}
	})
}

func TestSessionDisplayName(t *testing.T) {
	s := Session{Username: "dujjonku"}
	if got := s.DisplayName(); got != "dujjonku" {
		t.Errorf("got %q", got)
	}
	s.ProfileName = "Dujjon"
	if got := s.DisplayName(); got != "dujjonku (Dujjon)" {
		t.Errorf("got %q", got)
	}
}
