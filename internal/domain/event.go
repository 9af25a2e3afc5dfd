package domain

import "time"

// EventKind tags the classified shape of a raw server log line.
type EventKind string

const (
	EventSteamAuthenticated EventKind = "steam_authenticated"
	EventSessionAssigned    EventKind = "session_assigned"
	EventPlayerJoined       EventKind = "player_joined"
	EventPlayerLeft         EventKind = "player_left"
	EventUnrecognized       EventKind = "unrecognized"
)

// LogEvent is the classifier output: one typed event carrying the identity
// fragments its log line declared. Classification is a pure function of the
// line text; identical text always yields the same kind and fields.
type LogEvent struct {
	Kind          EventKind
	SteamID       string
	SessionHandle string
	Username      string
	At            time.Time
	Raw           string
}

// RawLogLine is a single shipped log line as received on the ingest boundary.
// The shipper may attach its own stable log id; otherwise one is derived from
// the line's content. Not persisted.
type RawLogLine struct {
	Text       string    `json:"log"`
	LogID      string    `json:"log_id,omitempty"`
	ReceivedAt time.Time `json:"-"`
}

// Outcome is the per-line result reported back to the shipper.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeMismatch     Outcome = "mismatch"
	OutcomeOrphan       Outcome = "orphan"
	OutcomeError        Outcome = "error"
)

// LineResult is the outcome of processing one shipped line. No line failure
// ever fails the batch it arrived in.
type LineResult struct {
	LogID   string  `json:"log_id"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// SessionEvent is the live feed entry broadcast when a session opens or
// closes.
type SessionEvent struct {
	Type            string    `json:"type"` // connected or disconnected
	SteamID         string    `json:"steam_id"`
	SessionHandle   string    `json:"session_handle"`
	Username        string    `json:"username"`
	At              time.Time `json:"at"`
	PlaytimeSeconds int       `json:"playtime_seconds,omitempty"`
}

// Notification is a rendered message for the outbound push channel.
type Notification struct {
	Title       string
	Description string
	Color       int
	Fields      []NotificationField
	At          time.Time
}

// NotificationField is one labeled value inside a notification.
type NotificationField struct {
	Name   string
	Value  string
	Inline bool
}
