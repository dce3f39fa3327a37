package generation

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// NewOpenAIClient creates the process-wide OpenAI client. The same client
// serves chat, image and moderation requests.
func NewOpenAIClient(settings Settings) (openai.Client, error) {
	if settings.APIKey == "" {
		return openai.Client{}, errors.New("openai api key missing; set OPENAI_API_KEY or openai.api_key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithMaxRetries(0),
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	return openai.NewClient(opts...), nil
}

// OpenAITextGenerator implements TextGenerator with chat completions.
type OpenAITextGenerator struct {
	client openai.Client
}

func NewOpenAITextGenerator(client openai.Client) *OpenAITextGenerator {
	return &OpenAITextGenerator{client: client}
}

func (o *OpenAITextGenerator) Complete(ctx context.Context, req TextRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
