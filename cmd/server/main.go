package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/database"
	"github.com/stemsi/exstem-selftest/internal/handler"
	"github.com/stemsi/exstem-selftest/internal/logger"
	"github.com/stemsi/exstem-selftest/internal/repository"
	"github.com/stemsi/exstem-selftest/internal/router"
	"github.com/stemsi/exstem-selftest/internal/service"
	"github.com/stemsi/exstem-selftest/internal/validator"
	"github.com/stemsi/exstem-selftest/internal/worker"
)

const janitorInterval = time.Minute

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Int("default_time_limit", cfg.DefaultTimeLimit).
		Msg("Starting ExStem Self-Test")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// ─── Initialize Repositories ───────────────────────────────────────
	bankRepo := repository.NewBankRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	bankService := service.NewBankService(bankRepo, questionRepo, rdb, log)
	sessionService := service.NewSessionService(bankService, service.NewResultQueue(rdb), service.SessionConfig{
		FallbackSeconds: cfg.DefaultTimeLimit,
		IdleTimeout:     cfg.SessionIdle,
	}, log)
	attemptService := service.NewAttemptService(attemptRepo)
	reviewService := service.NewReviewService(reviewRepo, log)
	exportService := service.NewExportService(bankService, attemptRepo)
	mediaService := service.NewMediaService(cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Public:  handler.NewPublicHandler(sessionService.Renderer(), log),
		Session: handler.NewSessionHandler(sessionService, attemptService),
		WS:      handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Bank:    handler.NewBankHandler(bankService, exportService),
		Review:  handler.NewReviewHandler(reviewService),
		Media:   handler.NewMediaHandler(mediaService),
		System:  handler.NewSystemHandler(rdb, sessionService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	scoringWorker := worker.NewScoringWorker(pool, rdb, log)
	reviewWorker := worker.NewReviewWorker(pool, rdb, log)

	workers.Add(3)
	go func() { defer workers.Done(); scoringWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); reviewWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); sessionService.RunJanitor(workerCtx, janitorInterval) }()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load every bank into Redis BEFORE accepting traffic so the first
	// sessions do not all fall through to PostgreSQL.
	if err := bankService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, sessionService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Close live sessions. Open attempts are queued as abandoned and
	// WebSocket streams end with their session.
	sessionService.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
