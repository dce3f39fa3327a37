package generation

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiTextGenerator implements TextGenerator with Google's Gemini API.
type GeminiTextGenerator struct {
	client *genai.Client
}

func NewGeminiTextGenerator(ctx context.Context, settings Settings) (*GeminiTextGenerator, error) {
	if settings.APIKey == "" {
		return nil, errors.New("gemini api key missing; set GEMINI_API_KEY or gemini.api_key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  settings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiTextGenerator{client: client}, nil
}

func (g *GeminiTextGenerator) Complete(ctx context.Context, req TextRequest) (string, error) {
	var config *genai.GenerateContentConfig
	if req.MaxTokens > 0 {
		config = &genai.GenerateContentConfig{MaxOutputTokens: int32(req.MaxTokens)}
	}
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
