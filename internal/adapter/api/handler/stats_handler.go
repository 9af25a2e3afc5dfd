package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/playtime-tracker/internal/domain"
)

// StatsHandler serves the read-only playtime statistics.
type StatsHandler struct {
	stats  domain.StatsRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats domain.StatsRepository, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger, now: time.Now}
}

type statsResponse struct {
	TotalPlaytime []domain.PlayerPlaytime `json:"total_playtime"`
	ActiveToday   []domain.Session        `json:"active_today"`
	Timestamp     string                  `json:"timestamp"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	totals, err := h.stats.TotalPlaytime(r.Context())
	if err != nil {
		h.logger.Error("failed to load total playtime", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	active, err := h.stats.ActiveOnDate(r.Context(), now.Format(domain.DateLayout))
	if err != nil {
		h.logger.Error("failed to load active sessions", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statsResponse{
		TotalPlaytime: totals,
		ActiveToday:   active,
		Timestamp:     now.Format(time.RFC3339),
	}); err != nil {
		h.logger.Error("failed to encode stats response", "error", err)
	}
}
