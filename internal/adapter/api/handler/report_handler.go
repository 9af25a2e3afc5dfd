package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/playtime-tracker/internal/usecase"
)

// ReportHandler triggers the daily report push. Intended to be hit by an
// external scheduler (cron).
type ReportHandler struct {
	useCase *usecase.ReportUseCase
	logger  *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(uc *usecase.ReportUseCase, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{useCase: uc, logger: logger}
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.useCase.SendDaily(r.Context()); err != nil {
		h.logger.Error("failed to send daily report", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true})
}
