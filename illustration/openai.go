package illustration

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
)

// OpenAIImageClient generates images with the OpenAI images endpoint.
type OpenAIImageClient struct {
	client openai.Client
	model  string
}

// NewOpenAIImageClient creates a client; an empty model uses the service default.
func NewOpenAIImageClient(client openai.Client, model string) *OpenAIImageClient {
	return &OpenAIImageClient{client: client, model: model}
}

func (c *OpenAIImageClient) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	params := openai.ImageGenerateParams{
		Prompt:         req.Prompt,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(req.Size),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	}
	if c.model != "" {
		params.Model = openai.ImageModel(c.model)
	}

	resp, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", errors.New("openai: empty image data")
	}
	return resp.Data[0].URL, nil
}
