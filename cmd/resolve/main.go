package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/config"
	"github.com/dvloznov/firefly-assistant/internal/embedding"
	"github.com/dvloznov/firefly-assistant/internal/firefly"
	"github.com/dvloznov/firefly-assistant/internal/infra/postgres"
	"github.com/dvloznov/firefly-assistant/internal/intent"
	"github.com/dvloznov/firefly-assistant/internal/logger"
)

func main() {
	cfg := config.Load()

	// Initialize structured logger
	log := logger.NewWithLevel(cfg.LogLevel)

	// Parse CLI flags
	text := flag.String("text", "", "Message to resolve, e.g. \"Lunch at Sukiya 500 yen tags: food\"")
	submit := flag.Bool("submit", false, "Submit the resolved proposal to the ledger")
	flag.Parse()

	// Validate required flags and configuration
	if *text == "" {
		log.Fatal().Msg("Error: --text is required")
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("Error: GEMINI_API_KEY is required")
	}
	if *submit && cfg.FireflyAPIToken == "" {
		log.Fatal().Msg("Error: FIREFLY_API_TOKEN is required to submit")
	}

	// Create context with timeout so the CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	// Initialize the reference store
	repo, err := postgres.NewPostgresLedgerRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to reference store")
	}
	defer repo.Close()

	// Initialize the model-backed components
	embedder, err := embedding.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create embedder")
	}
	index := embedding.NewIndex(repo, embedder)

	model, err := intent.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.ExtractionModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extraction model")
	}
	resolver := intent.NewResolver(repo, index, model, cfg.ExtractionFormat, cfg.ModelTimeout)

	// Resolve the message into a proposal
	proposal, err := resolver.DetermineIntent(ctx, *text)
	if err != nil {
		if errors.Is(err, intent.ErrNoProposal) {
			log.Fatal().Err(err).Msg("No transaction could be extracted from the input")
		}
		log.Fatal().Err(err).Msg("Intent resolution failed")
	}

	out, err := json.MarshalIndent(proposal, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode proposal")
	}
	fmt.Println(string(out))

	if !*submit {
		return
	}

	if len(proposal.MissingInfo) > 0 {
		log.Fatal().
			Strs("missing_info", proposal.MissingInfo).
			Msg("Refusing to submit an incomplete proposal")
	}

	// Submit to the ledger
	ledger := firefly.NewClient(nil, cfg.FireflyAPIURL, cfg.FireflyAPIToken, log)
	created, err := ledger.CreateTransaction(ctx, firefly.BuildSubmission(proposal))
	if err != nil {
		var vErr *firefly.ValidationError
		if errors.As(err, &vErr) {
			for field, msgs := range vErr.Fields {
				for _, msg := range msgs {
					log.Error().Str("field", field).Msg(msg)
				}
			}
			log.Fatal().Msg("Ledger rejected the transaction")
		}
		log.Fatal().Err(err).Msg("Submission failed")
	}

	fmt.Printf("Created transaction %s.\n", created.ID)
}
