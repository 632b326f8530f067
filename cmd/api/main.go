package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/campuskit/iam-service/internal/infra/app"
	"github.com/campuskit/iam-service/internal/infra/config"
)

func main() {
	// Absent .env is fine; container deployments inject real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := service.Run(ctx); err != nil {
		log.Printf("shutdown with error: %v", err)
		os.Exit(1)
	}
}
