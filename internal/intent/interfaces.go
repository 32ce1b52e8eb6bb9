package intent

import (
	"context"

	"github.com/dvloznov/firefly-assistant/internal/domain"
	"github.com/dvloznov/firefly-assistant/internal/embedding"
)

// TextModel defines the single-turn extraction model call.
// This interface enables mocking and testing of resolution runs.
type TextModel interface {
	// GenerateText sends one prompt and returns the model's raw reply text.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ExemplarFinder retrieves the historical transactions most similar to a
// query text, best first.
type ExemplarFinder interface {
	FindSimilar(ctx context.Context, query string, topK int) ([]domain.ExemplarMatch, error)
}

// Compile-time check that the embedding index satisfies the interface.
var _ ExemplarFinder = (*embedding.Index)(nil)
