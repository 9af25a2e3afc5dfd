package api

import (
	"log/slog"
	"net/http"

	"github.com/user/playtime-tracker/internal/adapter/api/handler"
	"github.com/user/playtime-tracker/internal/adapter/api/middleware"
	"github.com/user/playtime-tracker/internal/domain"
	"github.com/user/playtime-tracker/internal/pkg/config"
	"github.com/user/playtime-tracker/internal/usecase"
)

// NewRouter creates and configures the main HTTP router for the service.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	apiKeyRepo domain.APIKeyRepository,
	tracker *usecase.TrackSessionsUseCase,
	reporter *usecase.ReportUseCase,
	stats domain.StatsRepository,
	broker *handler.SSEBroker,
	db handler.Pinger,
) http.Handler {
	mux := http.NewServeMux()

	authMiddleware := middleware.Auth(apiKeyRepo, logger)

	mux.Handle("POST /ingest", authMiddleware(handler.NewIngestHandler(tracker, logger, cfg.MaxBatchBytes)))
	mux.Handle("POST /report/daily", authMiddleware(handler.NewReportHandler(reporter, logger)))
	mux.Handle("GET /stats", handler.NewStatsHandler(stats, logger))
	mux.Handle("GET /events", broker)
	mux.Handle("GET /health", handler.NewHealthHandler(db, tracker, logger))

	return mux
}
