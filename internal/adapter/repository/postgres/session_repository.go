package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user/playtime-tracker/internal/domain"
)

// schema is bootstrapped at startup. processed_logs is the dedup ledger:
// append-only, never purged by the service.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               BIGSERIAL PRIMARY KEY,
	steam_id         TEXT NOT NULL,
	session_handle   TEXT NOT NULL,
	username         TEXT NOT NULL,
	profile_name     TEXT,
	date             TEXT NOT NULL,
	connect_time     TEXT NOT NULL,
	disconnect_time  TEXT,
	playtime_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open_handle
	ON sessions (session_handle)
	WHERE disconnect_time IS NULL;

CREATE INDEX IF NOT EXISTS idx_sessions_steam_id_date
	ON sessions (steam_id, date);

CREATE TABLE IF NOT EXISTS processed_logs (
	log_id         TEXT PRIMARY KEY,
	processed_at   TIMESTAMPTZ NOT NULL,
	steam_id       TEXT,
	session_handle TEXT,
	action         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_logs_time
	ON processed_logs (processed_at);

CREATE TABLE IF NOT EXISTS api_keys (
	key        TEXT PRIMARY KEY,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	expires_at TIMESTAMPTZ
);
`

const admitQuery = `
	INSERT INTO processed_logs (log_id, processed_at, steam_id, session_handle, action)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
	ON CONFLICT (log_id) DO NOTHING`

// SessionRepository implements domain.SessionRepository on PostgreSQL. The
// dedup ledger insert and the session mutation of one event share a
// transaction, so a crash between them can neither double-apply nor drop the
// event.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Admit records the log id in the ledger. ErrDuplicateEvent when present.
func (r *SessionRepository) Admit(ctx context.Context, rec domain.ProcessedLog) error {
	res, err := r.db.ExecContext(ctx, admitQuery,
		rec.LogID, rec.ProcessedAt, rec.SteamID, rec.SessionHandle, rec.Action)
	if err != nil {
		return fmt.Errorf("admit log record: %w", err)
	}
	return admitted(res)
}

// OpenSession admits the record and inserts the session row in one
// transaction.
func (r *SessionRepository) OpenSession(ctx context.Context, rec domain.ProcessedLog, s *domain.Session) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	if err := admitTx(ctx, txn, rec); err != nil {
		return err
	}

	err = txn.QueryRowContext(ctx, `
		INSERT INTO sessions (steam_id, session_handle, username, profile_name, date, connect_time, disconnect_time, playtime_seconds)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULL, 0)
		RETURNING id`,
		s.SteamID, s.SessionHandle, s.Username, s.ProfileName, s.Date, s.ConnectTime,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return txn.Commit()
}

// CloseSession admits the record, finalizes the open row and inserts any
// rollover rows in one transaction.
func (r *SessionRepository) CloseSession(ctx context.Context, rec domain.ProcessedLog, sessionID int64, disconnectTime string, playtimeSeconds int, rollover []domain.Session) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := admitTx(ctx, txn, rec); err != nil {
		return err
	}

	res, err := txn.ExecContext(ctx, `
		UPDATE sessions
		SET disconnect_time = $1, playtime_seconds = $2
		WHERE id = $3 AND disconnect_time IS NULL`,
		disconnectTime, playtimeSeconds, sessionID)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNoOpenSession
	}

	for i := range rollover {
		seg := &rollover[i]
		err = txn.QueryRowContext(ctx, `
			INSERT INTO sessions (steam_id, session_handle, username, profile_name, date, connect_time, disconnect_time, playtime_seconds)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
			RETURNING id`,
			seg.SteamID, seg.SessionHandle, seg.Username, seg.ProfileName,
			seg.Date, seg.ConnectTime, seg.DisconnectTime, seg.PlaytimeSeconds,
		).Scan(&seg.ID)
		if err != nil {
			return fmt.Errorf("insert rollover session: %w", err)
		}
	}

	return txn.Commit()
}

// FindOpenByHandle returns the open session for a handle, or nil.
func (r *SessionRepository) FindOpenByHandle(ctx context.Context, handle string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, steam_id, session_handle, username, COALESCE(profile_name, ''), date, connect_time, playtime_seconds
		FROM sessions
		WHERE session_handle = $1 AND disconnect_time IS NULL
		ORDER BY date DESC, connect_time DESC
		LIMIT 1`, handle)

	var s domain.Session
	err := row.Scan(&s.ID, &s.SteamID, &s.SessionHandle, &s.Username, &s.ProfileName, &s.Date, &s.ConnectTime, &s.PlaytimeSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return &s, nil
}

// SetProfileName backfills the resolved profile name on a session row.
func (r *SessionRepository) SetProfileName(ctx context.Context, sessionID int64, name string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET profile_name = $1 WHERE id = $2`, name, sessionID)
	if err != nil {
		return fmt.Errorf("set profile name: %w", err)
	}
	return nil
}

func admitTx(ctx context.Context, txn *sql.Tx, rec domain.ProcessedLog) error {
	res, err := txn.ExecContext(ctx, admitQuery,
		rec.LogID, rec.ProcessedAt, rec.SteamID, rec.SessionHandle, rec.Action)
	if err != nil {
		return fmt.Errorf("admit log record: %w", err)
	}
	return admitted(res)
}

func admitted(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDuplicateEvent
	}
	return nil
}
