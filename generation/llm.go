package generation

import (
	"context"
	"fmt"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// TextRequest is a single-prompt completion request.
type TextRequest struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// TextGenerator abstracts the text model so providers can be swapped or faked.
type TextGenerator interface {
	Complete(ctx context.Context, req TextRequest) (string, error)
}

// TextGeneratorFunc adapts a function to TextGenerator.
type TextGeneratorFunc func(ctx context.Context, req TextRequest) (string, error)

func (f TextGeneratorFunc) Complete(ctx context.Context, req TextRequest) (string, error) {
	return f(ctx, req)
}

// Settings is the provider configuration shared by the concrete clients.
type Settings struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// NewTextGenerator builds the client for settings.Provider.
func NewTextGenerator(ctx context.Context, settings Settings) (TextGenerator, error) {
	switch settings.Provider {
	case ProviderOpenAI, "":
		client, err := NewOpenAIClient(settings)
		if err != nil {
			return nil, err
		}
		return NewOpenAITextGenerator(client), nil
	case ProviderGemini:
		return NewGeminiTextGenerator(ctx, settings)
	case ProviderMock:
		return MockTextGenerator{}, nil
	default:
		return nil, fmt.Errorf("text provider %s not supported", settings.Provider)
	}
}
