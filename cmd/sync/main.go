package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/config"
	"github.com/dvloznov/firefly-assistant/internal/embedding"
	"github.com/dvloznov/firefly-assistant/internal/firefly"
	"github.com/dvloznov/firefly-assistant/internal/fireflysync"
	"github.com/dvloznov/firefly-assistant/internal/infra/postgres"
	"github.com/dvloznov/firefly-assistant/internal/logger"
)

func main() {
	cfg := config.Load()

	// Initialize structured logger
	log := logger.NewWithLevel(cfg.LogLevel)

	// Parse CLI flags
	entity := flag.String("entity", "all", "Entity to sync: all, accounts, categories, bills or transactions")
	full := flag.Bool("full", false, "Full resync instead of an incremental one")
	flag.Parse()

	// Validate required configuration
	if !fireflysync.ValidEntity(*entity) {
		log.Fatal().Str("entity", *entity).Msg("Error: unknown --entity")
	}
	if cfg.FireflyAPIToken == "" {
		log.Fatal().Msg("Error: FIREFLY_API_TOKEN is required")
	}
	if cfg.GeminiAPIKey == "" && (*entity == fireflysync.EntityAll || *entity == fireflysync.EntityTransactions) {
		log.Fatal().Msg("Error: GEMINI_API_KEY is required to backfill embeddings")
	}

	// Create context with timeout so the CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("entity", *entity).
		Bool("full", *full).
		Msg("Starting ledger sync")

	// Initialize the reference store
	repo, err := postgres.NewPostgresLedgerRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to reference store")
	}
	defer repo.Close()

	// Initialize the ledger client and embedder
	ledger := firefly.NewClient(nil, cfg.FireflyAPIURL, cfg.FireflyAPIToken, log).
		WithPageSize(cfg.SyncPageSize)

	embedder, err := embedding.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create embedder")
	}

	// Sync the selected entities
	if err := fireflysync.SyncEntity(ctx, repo, ledger, embedder, *entity, *full); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
