package intent

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiModel performs the extraction call against the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

var _ TextModel = (*GeminiModel)(nil)

// NewGeminiModel creates an extraction model backed by the Gemini API.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// GenerateText sends one prompt and returns the raw reply text.
func (g *GeminiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenerateText: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GenerateText: empty response from model")
	}
	return text, nil
}
