package domain

import "context"

// SessionRepository is the durable store for sessions and the dedup ledger.
// Admission of a log record and the session mutation it causes are committed
// together or not at all; a failed write leaves the record unadmitted so a
// later retry reprocesses it safely.
type SessionRepository interface {
	// Admit records a log id in the dedup ledger with no session mutation.
	// Returns ErrDuplicateEvent when the id was already admitted.
	Admit(ctx context.Context, rec ProcessedLog) error

	// OpenSession admits the log record and inserts a new open session row
	// in one transaction, filling in the generated session id.
	OpenSession(ctx context.Context, rec ProcessedLog, s *Session) error

	// CloseSession admits the log record, closes the open row identified by
	// sessionID, and inserts any rollover rows, all in one transaction.
	CloseSession(ctx context.Context, rec ProcessedLog, sessionID int64, disconnectTime string, playtimeSeconds int, rollover []Session) error

	// FindOpenByHandle returns the open session for a handle, or nil when
	// there is none.
	FindOpenByHandle(ctx context.Context, handle string) (*Session, error)

	// SetProfileName backfills the resolved Steam profile name on a session
	// row after the fact.
	SetProfileName(ctx context.Context, sessionID int64, name string) error
}

// PlayerPlaytime is a cumulative playtime aggregate for one player.
type PlayerPlaytime struct {
	SteamID      string `json:"steam_id"`
	Username     string `json:"username"`
	TotalSeconds int64  `json:"total_seconds"`
}

// PlayerDailyPlaytime is a single day's playtime aggregate for one player.
type PlayerDailyPlaytime struct {
	SteamID  string `json:"steam_id"`
	Username string `json:"username"`
	Sessions int    `json:"sessions"`
	Seconds  int64  `json:"seconds"`
}

// StatsRepository serves the read-only reporting queries over committed
// session rows. No correlation logic lives behind this interface.
type StatsRepository interface {
	TotalPlaytime(ctx context.Context) ([]PlayerPlaytime, error)
	PlaytimeOnDate(ctx context.Context, date string) ([]PlayerDailyPlaytime, error)
	ActiveOnDate(ctx context.Context, date string) ([]Session, error)
	TopPlayers(ctx context.Context, limit int) ([]PlayerPlaytime, error)
}

// Notifier pushes a rendered message to the outbound channel. Delivery is
// best effort; failures are logged by the caller and never reach the ingest
// path.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ProfileResolver looks up a player's public display name by steam id. A
// failure degrades to an unset profile name, never blocking session creation.
type ProfileResolver interface {
	DisplayName(ctx context.Context, steamID string) (string, error)
}

// APIKeyRepository validates ingest API keys.
type APIKeyRepository interface {
	// IsValid checks if the provided API key is valid and active.
	// Implementations should handle caching to reduce database load.
	IsValid(ctx context.Context, key string) (bool, error)
}
