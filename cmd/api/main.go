package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/api/handlers"
	"github.com/dvloznov/firefly-assistant/internal/api/middleware"
	"github.com/dvloznov/firefly-assistant/internal/config"
	"github.com/dvloznov/firefly-assistant/internal/embedding"
	"github.com/dvloznov/firefly-assistant/internal/firefly"
	"github.com/dvloznov/firefly-assistant/internal/fireflysync"
	"github.com/dvloznov/firefly-assistant/internal/infra/postgres"
	"github.com/dvloznov/firefly-assistant/internal/intent"
	"github.com/dvloznov/firefly-assistant/internal/jobs"
	"github.com/dvloznov/firefly-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/firefly-assistant/internal/logger"
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	flag.Parse()

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	if cfg.FireflyAPIToken == "" {
		log.Warn().Msg("No ledger API token configured - ledger requests will be rejected")
	}
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("No Gemini API key configured - intent resolution will be disabled")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Initialize the reference store
	repo, err := postgres.NewPostgresLedgerRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to reference store")
	}
	defer repo.Close()

	// Initialize the ledger client and model-backed components
	ledger := firefly.NewClient(nil, cfg.FireflyAPIURL, cfg.FireflyAPIToken, log).
		WithPageSize(cfg.SyncPageSize)

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

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Create job handler for processing sync jobs
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncLedgerJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", syncJob.JobID).
			Str("entity", syncJob.Entity).
			Bool("full", syncJob.Full).
			Msg("Processing sync job")

		if err := fireflysync.SyncEntity(ctx, repo, ledger, embedder, syncJob.Entity, syncJob.Full); err != nil {
			log.Error().
				Err(err).
				Str("job_id", syncJob.JobID).
				Str("entity", syncJob.Entity).
				Msg("Sync job failed")
			return err
		}

		log.Info().
			Str("job_id", syncJob.JobID).
			Str("entity", syncJob.Entity).
			Msg("Sync job completed successfully")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	intentHandler := handlers.NewIntentHandler(resolver, log)
	transactionsHandler := handlers.NewTransactionsHandler(ledger, log)
	syncHandler := handlers.NewSyncHandler(jobQueue, repo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	referenceHandler := handlers.NewReferenceHandler(repo, log)

	// Create router
	mux := http.NewServeMux()

	// Intent endpoint
	mux.HandleFunc("/api/intent", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			intentHandler.ResolveIntent(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoint
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.CreateTransaction(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Sync endpoints
	mux.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			syncHandler.EnqueueSync(w, r)
		case http.MethodGet:
			syncHandler.ListRuns(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Reference data endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			referenceHandler.ListAccounts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			referenceHandler.ListCategories(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			referenceHandler.ListTags(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/bills", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			referenceHandler.ListBills(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/context", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			referenceHandler.GetContext(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Int("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
