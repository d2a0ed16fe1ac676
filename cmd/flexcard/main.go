package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/flexcard/internal/accounts"
	"github.com/odyssey-erp/flexcard/internal/app"
	"github.com/odyssey-erp/flexcard/internal/card"
	"github.com/odyssey-erp/flexcard/internal/observability"
	"github.com/odyssey-erp/flexcard/internal/platform/cache"
	"github.com/odyssey-erp/flexcard/internal/platform/db"
	"github.com/odyssey-erp/flexcard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := asynq.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	accountService := accounts.NewService(accounts.NewRepository(dbpool), cfg.DocumentBaseURL)
	cardService := card.NewService(card.NewRedisStore(redisClient, cfg.CardTTL), card.Deps{
		Accounts:  accountService,
		Mailer:    jobs.NewMailer(queue),
		Documents: accountService,
		Guard:     cache.NewLocker(redisClient, cfg.SubmitLockTTL),
		Observer:  metrics,
		Logger:    logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		CardHandler: card.NewHandler(logger, cardService),
		JobHandler:  jobs.NewHandler(inspector, logger),
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
