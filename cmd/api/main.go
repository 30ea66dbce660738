package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/app"
	"github.com/docqueryhq/docquery/internal/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatalw("startup failed", "error", err)
	}
	defer application.Close()

	application.Ingestor.Start(ctx, cfg.IngestWorkers)

	go func() {
		if err := application.Server.Start(); err != nil {
			logger.Fatalw("server error", "error", err)
		}
	}()

	logger.Infow("docquery is running", "provider", cfg.LLMProvider)
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("shutdown error", "error", err)
	}
}
