package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/database"
	"github.com/hugh/zenshin-chart/internal/export"
	"github.com/hugh/zenshin-chart/internal/tasks"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/hugh/zenshin-chart/pkg/config"
	"github.com/hugh/zenshin-chart/pkg/crypto"
	"github.com/hugh/zenshin-chart/pkg/metrics"
	"github.com/hugh/zenshin-chart/pkg/queue"
	"github.com/hugh/zenshin-chart/pkg/util"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting ZENSHIN CHART worker")

	if err := util.ValidateCronExpr(cfg.Housekeeping.Cron); err != nil {
		logger.Error("invalid HOUSEKEEPING_CRON", "cron", cfg.Housekeeping.Cron, "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	m := metrics.New(prometheus.NewRegistry())

	var uploader export.Uploader
	if cfg.Export.Enabled() {
		s3u, err := export.NewS3Uploader(context.Background(), cfg.Export)
		if err != nil {
			logger.Error("failed to configure export storage", "error", err)
			os.Exit(1)
		}
		uploader = s3u
	} else {
		logger.Warn("EXPORT_BUCKET not set, chart exports will be skipped")
	}

	handler := tasks.NewHandler(
		workspace.NewService(db, logger, m, cfg.App.DefaultWorkspaceName),
		charts.NewService(db, logger),
		uploader,
		cfg.Housekeeping.Retention(),
		logger,
		m,
	)

	if cfg.Export.AgeRecipient != "" {
		enc, err := crypto.NewEncryptor(cfg.Export.AgeRecipient)
		if err != nil {
			logger.Error("invalid EXPORT_AGE_RECIPIENT", "error", err)
			os.Exit(1)
		}
		handler.WithEncryptor(enc)
		logger.Info("chart exports will be sealed", "recipient", enc.Recipient())
	}

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	srv := queue.NewServer(&cfg.Redis, 10)

	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Housekeeping.Cron, tasks.NewPurgeExpiredInvitationsTask())
	if err != nil {
		logger.Error("failed to register housekeeping schedule", "error", err)
		os.Exit(1)
	}
	nextPurge, _ := util.NextCronTime(cfg.Housekeeping.Cron, time.Now())
	logger.Info("housekeeping scheduled", "cron", cfg.Housekeeping.Cron, "entry_id", entryID, "next_run", nextPurge)

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	var metricsSrv *http.Server
	if cfg.Server.WorkerMetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Server.WorkerMetricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if err := srv.Start(mux); err != nil {
		logger.Error("worker error", "error", err)
		scheduler.Shutdown()
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}

	logger.Info("worker stopped")
}
