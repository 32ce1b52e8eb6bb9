package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/config"
	"github.com/dvloznov/firefly-assistant/internal/embedding"
	"github.com/dvloznov/firefly-assistant/internal/firefly"
	"github.com/dvloznov/firefly-assistant/internal/fireflysync"
	"github.com/dvloznov/firefly-assistant/internal/infra/postgres"
	"github.com/dvloznov/firefly-assistant/internal/jobs"
	"github.com/dvloznov/firefly-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/firefly-assistant/internal/logger"
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	interval := flag.Duration("interval", 6*time.Hour, "how often to enqueue a ledger sync")
	full := flag.Bool("full", false, "force full resyncs instead of incremental ones")
	flag.Parse()

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	log.Info().Msg("Starting worker service")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	// Initialize the reference store and ledger client
	repo, err := postgres.NewPostgresLedgerRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to reference store")
	}
	defer repo.Close()

	ledger := firefly.NewClient(nil, cfg.FireflyAPIURL, cfg.FireflyAPIToken, log).
		WithPageSize(cfg.SyncPageSize)

	embedder, err := embedding.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create embedder")
	}

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Create job handler that processes sync jobs
	handler := func(ctx context.Context, job jobs.Job) error {
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

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Enqueue one sync right away, then one on every tick.
	enqueueSync := func() {
		job := &jobs.SyncLedgerJob{Entity: fireflysync.EntityAll, Full: *full}
		if err := jobQueue.PublishSyncLedger(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to enqueue sync job")
			return
		}
		log.Info().Str("job_id", job.JobID).Msg("Sync job enqueued")
	}
	enqueueSync()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				enqueueSync()
			}
		}
	}()

	log.Info().Dur("interval", *interval).Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
