package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/spliced/internal/config"
	"github.com/agenthands/spliced/internal/core"
	"github.com/agenthands/spliced/internal/logger"
	"github.com/agenthands/spliced/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Resolve(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)
	if envErr != nil {
		log.Info("no .env file found, using environment and defaults")
	}

	ctx := context.Background()
	engine, err := core.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start prediction engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close(ctx)

	r := server.NewServer(engine, log).SetupRouter()

	log.Info("starting server", "port", cfg.Server.Port, "predictors", engine.Names())
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
