package fireflysync

import (
	"context"
	"fmt"

	"github.com/dvloznov/firefly-assistant/internal/embedding"
	"github.com/dvloznov/firefly-assistant/internal/logger"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

// BackfillEmbeddings computes and stores vectors for mirrored transactions
// that have none yet. Existing vectors are never recomputed, so an aborted
// backfill resumes where it stopped on the next run. limit <= 0 processes
// everything. Returns how many vectors were stored.
func BackfillEmbeddings(ctx context.Context, repo store.EmbeddingRepository, embedder embedding.Embedder, limit int) (int, error) {
	log := logger.FromContext(ctx)

	missing, err := repo.ListTransactionsWithoutEmbedding(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("BackfillEmbeddings: listing missing rows: %w", err)
	}
	if len(missing) == 0 {
		log.Debug().Msg("Embedding index is complete")
		return 0, nil
	}

	log.Info().Int("missing", len(missing)).Msg("Backfilling transaction embeddings")

	var stored int
	for _, tx := range missing {
		vec, err := embedder.Embed(ctx, embedding.Render(tx))
		if err != nil {
			return stored, fmt.Errorf("BackfillEmbeddings: transaction %d: %w", tx.ID, err)
		}

		row := &store.EmbeddingRow{TransactionID: tx.ID, Vector: embedding.EncodeVector(vec)}
		if err := repo.UpsertEmbedding(ctx, row); err != nil {
			return stored, fmt.Errorf("BackfillEmbeddings: transaction %d: %w", tx.ID, err)
		}
		stored++
	}

	log.Info().Int("stored", stored).Msg("Embedding backfill completed")
	return stored, nil
}
