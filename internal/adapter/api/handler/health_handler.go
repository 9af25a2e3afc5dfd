package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/playtime-tracker/internal/usecase"
)

// Pinger is the slice of *sql.DB the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports service health: database reachability and the
// engine's in-memory pending-state sizes.
type HealthHandler struct {
	db      Pinger
	tracker *usecase.TrackSessionsUseCase
	logger  *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, tracker *usecase.TrackSessionsUseCase, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, tracker: tracker, logger: logger}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	awaitingSession, awaitingJoin := h.tracker.PendingCounts()
	body := map[string]any{
		"status":           "healthy",
		"awaiting_session": awaitingSession,
		"awaiting_join":    awaitingJoin,
		"timestamp":        time.Now().Format(time.RFC3339),
	}

	status := http.StatusOK
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Warn("health check database ping failed", "error", err)
		body["status"] = "unhealthy"
		body["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
