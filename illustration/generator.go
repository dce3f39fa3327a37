package illustration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/coreybb/storybook/models"
)

const (
	DefaultSize = "1024x1024"

	styleYoung = "bright, colorful, and cartoony"
	styleOlder = "realistic and detailed"
)

// ImageRequest asks the upstream service for a single image.
type ImageRequest struct {
	Prompt string
	Size   string
}

// ImageClient returns the URL of one generated image.
type ImageClient interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// ImageClientFunc adapts a function to ImageClient.
type ImageClientFunc func(ctx context.Context, req ImageRequest) (string, error)

func (f ImageClientFunc) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	return f(ctx, req)
}

// StyleFor returns the illustration style for a reader's age.
func StyleFor(age int) string {
	if models.BandOf(age) == models.AgeBandYoung {
		return styleYoung
	}
	return styleOlder
}

// BuildPrompt prefixes an image description with the illustration style.
func BuildPrompt(style, description string) string {
	return fmt.Sprintf("A children's book illustration in a %s style. %s", style, description)
}

// Generator produces one illustration per page.
type Generator struct {
	client ImageClient
	size   string
	logger *zap.Logger
}

func NewGenerator(client ImageClient, size string, logger *zap.Logger) (*Generator, error) {
	if client == nil {
		return nil, errors.New("image client is required")
	}
	if size == "" {
		size = DefaultSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, size: size, logger: logger.Named("illustration")}, nil
}

// Generate requests images one at a time, in order. The first failure or
// empty result aborts the batch; no partial set is ever returned.
func (g *Generator) Generate(ctx context.Context, descriptions []string, age int) ([]string, error) {
	style := StyleFor(age)
	urls := make([]string, 0, len(descriptions))
	for i, desc := range descriptions {
		url, err := g.client.GenerateImage(ctx, ImageRequest{
			Prompt: BuildPrompt(style, desc),
			Size:   g.size,
		})
		if err != nil {
			g.logger.Error("Image generation failed", zap.Int("page", i+1), zap.Error(err))
			return nil, models.NewGenerationError(fmt.Sprintf("generate image %d", i+1), err)
		}
		if url == "" {
			g.logger.Error("Image generation returned no result", zap.Int("page", i+1))
			return nil, models.NewGenerationError(fmt.Sprintf("generate image %d", i+1), errors.New("no image returned"))
		}
		urls = append(urls, url)
	}
	g.logger.Info("Images generated", zap.Int("count", len(urls)), zap.String("style", style))
	return urls, nil
}
