package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Embedder produces a fixed-dimension vector for a text. Implementations
// must be deterministic: the same text always maps to the same vector, so
// vectors stored across runs stay comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder calls the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dim    int32
}

var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates an embedder for the given model and output
// dimensionality. The API key may be empty when ambient credentials are
// configured.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dim int) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiEmbedder: create genai client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model, dim: int32(dim)}, nil
}

// Embed returns the vector for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: text}},
		},
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(e.dim),
	})
	if err != nil {
		return nil, fmt.Errorf("Embed: embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("Embed: empty embedding from model")
	}

	return resp.Embeddings[0].Values, nil
}
