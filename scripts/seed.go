//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/database"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/hugh/zenshin-chart/pkg/config"
	"github.com/hugh/zenshin-chart/pkg/metrics"
	"github.com/hugh/zenshin-chart/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}
	if name == "" {
		name = "Admin"
	}

	resp, err := authService.Register(ctx, auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		Locale:   cfg.Locale.Default,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	workspaces := workspace.NewService(db, logger, metrics.NewNop(), cfg.App.DefaultWorkspaceName)
	wsID, err := workspaces.GetOrCreateWorkspace(ctx, resp.User.ID)
	if err != nil {
		log.Fatalf("failed to create workspace: %v", err)
	}

	chartService := charts.NewService(db, logger)
	chart, err := chartService.CreateChart(ctx, wsID, resp.User.ID, charts.CreateChartInput{Title: "Sample chart"})
	if err != nil {
		log.Fatalf("failed to create sample chart: %v", err)
	}
	if _, err := chartService.CreateArea(ctx, wsID, chart.ID, charts.AreaInput{Name: "General", Color: "#2f6fed"}); err != nil {
		log.Fatalf("failed to create sample area: %v", err)
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("Email: %s\n", resp.User.Email)
	fmt.Printf("Workspace: %s\n", wsID)
	fmt.Printf("Token: %s\n", resp.Token)
}
