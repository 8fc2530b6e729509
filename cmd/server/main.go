package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/config"
	httpserver "github.com/pr1t4m-d3y/Amazon-Hackathon/internal/http"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		zap.S().Fatalf("failed to load config: %v", err)
	}

	srv, err := httpserver.NewServer(cfg)
	if err != nil {
		zap.S().Fatalf("failed to create server: %v", err)
	}

	zap.S().Infow("server starting", "port", cfg.Port, "ocrMode", cfg.OCRMode)
	if err := srv.Run(); err != nil {
		zap.S().Fatalf("server stopped with error: %v", err)
	}
}
