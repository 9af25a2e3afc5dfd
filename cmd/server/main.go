package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/playtime-tracker/internal/adapter/api"
	"github.com/user/playtime-tracker/internal/adapter/api/handler"
	"github.com/user/playtime-tracker/internal/adapter/api/middleware"
	"github.com/user/playtime-tracker/internal/adapter/metrics"
	"github.com/user/playtime-tracker/internal/adapter/notifier"
	"github.com/user/playtime-tracker/internal/adapter/repository/postgres"
	redisrepo "github.com/user/playtime-tracker/internal/adapter/repository/redis"
	"github.com/user/playtime-tracker/internal/adapter/steam"
	"github.com/user/playtime-tracker/internal/domain"
	"github.com/user/playtime-tracker/internal/pkg/config"
	"github.com/user/playtime-tracker/internal/pkg/logger"
	"github.com/user/playtime-tracker/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewTrackerMetrics()

	// --- Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}

	sessionRepo := postgres.NewSessionRepository(db, log)
	if err := sessionRepo.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}
	statsRepo := postgres.NewStatsRepository(db, log)
	apiKeyRepo := postgres.NewAPIKeyRepository(db, log, cfg.APIKeyCacheTTL, m)

	// --- Profile lookup (optional) ---
	var profiles domain.ProfileResolver
	if cfg.SteamAPIKey != "" {
		var cache steam.Cache
		if cfg.RedisAddr != "" {
			redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Warn("could not connect to redis, profile lookups will be uncached", "error", err)
			}
			cache = redisrepo.NewProfileCache(redisClient, cfg.ProfileCacheTTL, log)
		}
		profiles = steam.NewResolver(cfg.SteamAPIKey, cache, m, log)
	} else {
		log.Info("no steam api key configured, profile lookups disabled")
	}

	// --- Notifier ---
	var push domain.Notifier
	if cfg.WebhookURL != "" {
		push = notifier.NewWebhook(cfg.WebhookURL, cfg.WebhookPerMinute, log)
	} else {
		log.Info("no webhook url configured, notifications go to stdout")
		push = notifier.NewStdoutNotifier()
	}

	// --- Live event broker ---
	broker := handler.NewSSEBroker(ctx, log)

	// --- Correlation engine and report use case ---
	tracker := usecase.NewTrackSessionsUseCase(sessionRepo, profiles, push, broker, m, log)
	reporter := usecase.NewReportUseCase(statsRepo, push, log)

	// Abandoned pending entries are evicted on a timer when a threshold is
	// configured; by default they live until restart.
	if cfg.PendingEvictAfter > 0 {
		go func() {
			ticker := time.NewTicker(cfg.PendingEvictAfter / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					tracker.EvictStale(cfg.PendingEvictAfter)
				}
			}
		}()
	}

	// --- HTTP Server ---
	router := api.NewRouter(cfg, log, apiKeyRepo, tracker, reporter, statsRepo, broker, db)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      middleware.Logging(log)(router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	// Let in-flight notifications and profile backfills finish.
	tracker.Wait()

	log.Info("servers shut down gracefully")
}
