package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hugh/zenshin-chart/internal/api"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/dashboard"
	"github.com/hugh/zenshin-chart/internal/database"
	"github.com/hugh/zenshin-chart/internal/locale"
	"github.com/hugh/zenshin-chart/internal/mailer"
	"github.com/hugh/zenshin-chart/internal/tasks"
	"github.com/hugh/zenshin-chart/internal/web"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/hugh/zenshin-chart/pkg/config"
	"github.com/hugh/zenshin-chart/pkg/metrics"
	"github.com/hugh/zenshin-chart/pkg/queue"
	"github.com/hugh/zenshin-chart/pkg/util"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting ZENSHIN CHART server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Production schemas are migrated externally.
	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, exports disabled", "error", err)
		_ = redisClient.Close()
		redisClient = nil
	}

	// The router checks the enqueuer against nil, so it is only set when
	// there is a real client behind it.
	var enqueuer tasks.Enqueuer
	if redisClient != nil {
		client := queue.NewClient(&cfg.Redis)
		defer client.Close()
		enqueuer = client
	}

	m := metrics.New(prometheus.NewRegistry())

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)
	workspaces := workspace.NewService(db, logger, m, cfg.App.DefaultWorkspaceName)
	resolver := locale.NewResolver(cfg.Locale.Default, cfg.Locale.Supported)

	mail := mailer.NewService(cfg.SMTP, cfg.App.Name, logger, m)
	if !mail.IsConfigured() {
		logger.Warn("SMTP_HOST not set, invitation email is disabled")
	}

	var provider auth.IdentityProvider
	if cfg.OAuth.Enabled() {
		p, err := auth.NewOAuthProvider(cfg.OAuth)
		if err != nil {
			logger.Error("failed to configure OAuth provider", "error", err)
			os.Exit(1)
		}
		provider = p
	}

	// Load templates
	templates, err := web.LoadTemplates()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	// Get static file system
	staticFS, err := web.GetStaticFS()
	if err != nil {
		logger.Error("failed to get static fs", "error", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.WindowSeconds)
	go limiter.Run(ctx, time.Minute)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		Metrics:        m,
		JWTService:     jwtService,
		AuthService:    authService,
		Workspaces:     workspaces,
		Charts:         charts.NewService(db, logger),
		Dashboard:      dashboard.NewService(db, logger),
		Resolver:       resolver,
		Mailer:         mail,
		Provider:       provider,
		Enqueuer:       enqueuer,
		Templates:      templates,
		StaticFS:       staticFS,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		BaseURL:        cfg.App.BaseURL,
		AppName:        cfg.App.Name,
		SecureCookies:  !cfg.Server.IsDevelopment(),
		SessionTTL:     cfg.JWT.Expiry(),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	database.Close(db)

	logger.Info("server stopped")
}
