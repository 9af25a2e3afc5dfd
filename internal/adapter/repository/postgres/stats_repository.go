package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/user/playtime-tracker/internal/domain"
)

// StatsRepository implements domain.StatsRepository with plain aggregation
// queries over committed session rows.
type StatsRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStatsRepository creates a new PostgreSQL stats repository.
func NewStatsRepository(db *sql.DB, logger *slog.Logger) *StatsRepository {
	return &StatsRepository{db: db, logger: logger}
}

func (r *StatsRepository) TotalPlaytime(ctx context.Context) ([]domain.PlayerPlaytime, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT steam_id, MAX(username), COALESCE(SUM(playtime_seconds), 0)
		FROM sessions
		GROUP BY steam_id
		ORDER BY 3 DESC`)
	if err != nil {
		return nil, fmt.Errorf("query total playtime: %w", err)
	}
	defer rows.Close()

	var out []domain.PlayerPlaytime
	for rows.Next() {
		var p domain.PlayerPlaytime
		if err := rows.Scan(&p.SteamID, &p.Username, &p.TotalSeconds); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StatsRepository) PlaytimeOnDate(ctx context.Context, date string) ([]domain.PlayerDailyPlaytime, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT steam_id, MAX(username), COUNT(*), COALESCE(SUM(playtime_seconds), 0)
		FROM sessions
		WHERE date = $1
		GROUP BY steam_id
		ORDER BY 4 DESC`, date)
	if err != nil {
		return nil, fmt.Errorf("query playtime on date: %w", err)
	}
	defer rows.Close()

	var out []domain.PlayerDailyPlaytime
	for rows.Next() {
		var p domain.PlayerDailyPlaytime
		if err := rows.Scan(&p.SteamID, &p.Username, &p.Sessions, &p.Seconds); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StatsRepository) ActiveOnDate(ctx context.Context, date string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, steam_id, session_handle, username, COALESCE(profile_name, ''), date, connect_time, playtime_seconds
		FROM sessions
		WHERE date = $1 AND disconnect_time IS NULL
		ORDER BY connect_time`, date)
	if err != nil {
		return nil, fmt.Errorf("query active sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.SteamID, &s.SessionHandle, &s.Username, &s.ProfileName, &s.Date, &s.ConnectTime, &s.PlaytimeSeconds); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *StatsRepository) TopPlayers(ctx context.Context, limit int) ([]domain.PlayerPlaytime, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT steam_id, MAX(username), COALESCE(SUM(playtime_seconds), 0)
		FROM sessions
		GROUP BY steam_id
		ORDER BY 3 DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top players: %w", err)
	}
	defer rows.Close()

	var out []domain.PlayerPlaytime
	for rows.Next() {
		var p domain.PlayerPlaytime
		if err := rows.Scan(&p.SteamID, &p.Username, &p.TotalSeconds); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
