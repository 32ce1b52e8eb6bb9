package embedding

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/firefly-assistant/internal/domain"
	"github.com/dvloznov/firefly-assistant/internal/logger"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

// Index serves nearest-neighbor lookups over the stored transaction
// vectors with a brute-force cosine scan. The mirror holds one person's
// ledger, so a linear scan stays fast and is always exact.
type Index struct {
	repo     store.EmbeddingRepository
	embedder Embedder
}

// NewIndex creates an index over the stored vectors.
func NewIndex(repo store.EmbeddingRepository, embedder Embedder) *Index {
	return &Index{repo: repo, embedder: embedder}
}

// FindSimilar embeds query and returns the topK nearest stored vectors by
// cosine similarity, descending. Ties keep ascending transaction-id order.
// Stored vectors whose byte length does not match the query dimension are
// skipped and logged, never fatal.
func (ix *Index) FindSimilar(ctx context.Context, query string, topK int) ([]domain.ExemplarMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	qvec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("FindSimilar: embedding query: %w", err)
	}

	rows, err := ix.repo.ListEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindSimilar: loading stored vectors: %w", err)
	}

	log := logger.FromContext(ctx)

	matches := make([]domain.ExemplarMatch, 0, len(rows))
	for _, row := range rows {
		vec, err := DecodeVector(row.Vector)
		if err != nil || len(vec) != len(qvec) {
			log.Error().
				Int64("transaction_id", row.TransactionID).
				Int("bytes", len(row.Vector)).
				Msg("skipping malformed stored embedding")
			continue
		}
		matches = append(matches, domain.ExemplarMatch{
			TransactionID: row.TransactionID,
			Score:         Cosine(qvec, vec),
		})
	}

	// rows arrive in ascending id order; the stable sort preserves that
	// order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
