package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cgpaplus/exam-core/internal/config"
	"github.com/cgpaplus/exam-core/internal/database"
	"github.com/cgpaplus/exam-core/internal/grading"
	"github.com/cgpaplus/exam-core/internal/handler"
	"github.com/cgpaplus/exam-core/internal/logger"
	"github.com/cgpaplus/exam-core/internal/metrics"
	"github.com/cgpaplus/exam-core/internal/repository"
	"github.com/cgpaplus/exam-core/internal/router"
	"github.com/cgpaplus/exam-core/internal/service"
	"github.com/cgpaplus/exam-core/internal/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting exam core")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Answer Key ───────────────────────────────────────────────
	key, err := grading.Load(cfg.AnswerKeyPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AnswerKeyPath).Msg("Failed to load answer key")
	}
	log.Info().Int("questions", key.Len()).Msg("Answer key loaded")

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Metrics ────────────────────────────────────────────
	m := metrics.New(prometheus.DefaultRegisterer)

	// ─── Initialize Repositories ───────────────────────────────────────
	resultRepo := repository.NewExamResultRepository(pool)
	progressRepo := repository.NewExamProgressRepository(pool)
	archiveRepo := repository.NewExamArchiveRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	sessionService := service.NewExamSessionService(resultRepo, progressRepo, key, m)
	monitorService := service.NewMonitorService(resultRepo, progressRepo)
	archiveService := service.NewArchiveService(resultRepo, archiveRepo, service.NewRedisLocker(rdb), cfg.ResetLockTTL, m)

	// ─── Initialize Handlers ──────────────────────────────────────────
	pingRedis := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	deps := map[string]handler.Pinger{
		"postgres": handler.PingFunc(pool.Ping),
		"redis":    handler.PingFunc(pingRedis),
	}

	handlers := &router.Handlers{
		Exam:    handler.NewExamHandler(sessionService, log),
		Monitor: handler.NewMonitorHandler(monitorService, log),
		Archive: handler.NewArchiveHandler(archiveService, log),
		System:  handler.NewSystemHandler(deps, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, m, prometheus.DefaultGatherer)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
