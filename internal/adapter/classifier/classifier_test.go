package classifier

import (
	"testing"
	"time"

	"github.com/user/playtime-tracker/internal/domain"
)

func TestClassify(t *testing.T) {
	at := time.Date(2026, 3, 10, 21, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		text   string
		kind   domain.EventKind
		steam  string
		handle string
		user   string
	}{
		{
			name:  "steam authentication",
			text:  "Accepted connection from 76561198314730173",
			kind:  domain.EventSteamAuthenticated,
			steam: "76561198314730173",
		},
		{
			name:   "session handle assignment",
			text:   "Connected to userid:2806406146",
			kind:   domain.EventSessionAssigned,
			handle: "2806406146",
		},
		{
			name:   "player join with display name",
			text:   "[userid:2806406146] player dujjonku connected islocalplayer=False",
			kind:   domain.EventPlayerJoined,
			handle: "2806406146",
			user:   "dujjonku",
		},
		{
			name:   "player disconnect",
			text:   "Disconnected from userid:2806406146 with reason App_Min",
			kind:   domain.EventPlayerLeft,
			handle: "2806406146",
		},
		{
			name: "unrelated server chatter",
			text: "World save completed in 0.42s",
			kind: domain.EventUnrecognized,
		},
		{
			name: "empty line",
			text: "",
			kind: domain.EventUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Classify(tt.text, at)
			if ev.Kind != tt.kind {
				t.Fatalf("kind: got %q, want %q", ev.Kind, tt.kind)
			}
			if ev.SteamID != tt.steam {
				t.Errorf("steam id: got %q, want %q", ev.SteamID, tt.steam)
			}
			if ev.SessionHandle != tt.handle {
				t.Errorf("handle: got %q, want %q", ev.SessionHandle, tt.handle)
			}
			if ev.Username != tt.user {
				t.Errorf("username: got %q, want %q", ev.Username, tt.user)
			}
			if !ev.At.Equal(at) {
				t.Errorf("at: got %v, want %v", ev.At, at)
			}
			if ev.Raw != tt.text {
				t.Errorf("raw: got %q, want %q", ev.Raw, tt.text)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	text := "[userid:2806406146] player dujjonku connected islocalplayer=False"
	a := Classify(text, time.Now())
	b := Classify(text, time.Now().Add(time.Hour))
	if a.Kind != b.Kind || a.SessionHandle != b.SessionHandle || a.Username != b.Username {
		t.Errorf("identical text classified differently: %+v vs %+v", a, b)
	}
}

func TestRecordID(t *testing.T) {
	at := time.Date(2026, 3, 10, 21, 4, 5, 0, time.UTC)

	t.Run("stable across deliveries", func(t *testing.T) {
		first := RecordID(Classify("Accepted connection from 76561198314730173", at))
		second := RecordID(Classify("Accepted connection from 76561198314730173", at.Add(time.Minute)))
		if first != second {
			t.Errorf("same line produced different record ids: %s vs %s", first, second)
		}
	})

	t.Run("distinct events do not collide", func(t *testing.T) {
		ids := map[string]string{}
		lines := []string{
			"Accepted connection from 76561198314730173",
			"Accepted connection from 76561198314730174",
			"Connected to userid:2806406146",
			"[userid:2806406146] player dujjonku connected islocalplayer=False",
			"Disconnected from userid:2806406146 with reason App_Min",
			"some unrecognized line",
		}
		for _, line := range lines {
			id := RecordID(Classify(line, at))
			if prev, ok := ids[id]; ok {
				t.Fatalf("record id collision between %q and %q", prev, line)
			}
			ids[id] = line
		}
	})
}
