package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rental-agent/agent"
	"rental-agent/config"
	"rental-agent/database"
	"rental-agent/llmclient"
	"rental-agent/search"
	"rental-agent/web"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	store, err := database.NewPostgresStore(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	llm := llmclient.New(cfg, logger)

	semantic, err := search.NewSemantic(llm, cfg.EmbeddingLLMHost, store, cfg.EmbeddingCacheSize, logger)
	if err != nil {
		logger.Fatal("Failed to initialize semantic searcher", zap.Error(err))
	}
	lexical := search.NewLexical(store, logger)
	hybrid := search.NewHybrid(cfg, semantic, lexical, logger)

	rentalAgent := agent.NewAgent(cfg, llm, hybrid, store, logger)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start background retention sweep
	cleanupService := web.NewCleanupService(store, logger)
	go web.StartSessionCleanup(ctx, cfg, cleanupService, logger)

	webServer := web.NewServer(cfg, rentalAgent, hybrid, store, logger)

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting rental agent web server", zap.String("port", port))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
