package story

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/coreybb/storybook/generation"
	"github.com/coreybb/storybook/models"
)

const (
	DefaultStoryModel     = "gpt-4"
	DefaultTitleModel     = "gpt-4o-mini"
	DefaultStoryMaxTokens = 2000
	DefaultTitleMaxTokens = 50
)

// Options selects models and output limits for the two completions.
type Options struct {
	StoryModel     string
	TitleModel     string
	StoryMaxTokens int
	TitleMaxTokens int
}

func (o Options) withDefaults() Options {
	if o.StoryModel == "" {
		o.StoryModel = DefaultStoryModel
	}
	if o.TitleModel == "" {
		o.TitleModel = DefaultTitleModel
	}
	if o.StoryMaxTokens <= 0 {
		o.StoryMaxTokens = DefaultStoryMaxTokens
	}
	if o.TitleMaxTokens <= 0 {
		o.TitleMaxTokens = DefaultTitleMaxTokens
	}
	return o
}

// Generator produces a titled, page-by-page story from a BookRequest.
type Generator struct {
	llm    generation.TextGenerator
	opts   Options
	logger *zap.Logger
}

func NewGenerator(llm generation.TextGenerator, opts Options, logger *zap.Logger) (*Generator, error) {
	if llm == nil {
		return nil, errors.New("text generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: llm, opts: opts.withDefaults(), logger: logger.Named("story")}, nil
}

// Generate returns the title and pages. Every failure is a GenerationError.
func (g *Generator) Generate(ctx context.Context, req models.BookRequest) (string, []models.StoryPage, error) {
	raw, err := g.llm.Complete(ctx, generation.TextRequest{
		Model:     g.opts.StoryModel,
		Prompt:    BuildStoryPrompt(req),
		MaxTokens: g.opts.StoryMaxTokens,
	})
	if err != nil {
		g.logger.Error("Story completion failed", zap.Error(err))
		return "", nil, models.NewGenerationError("generate story", err)
	}
	g.logger.Debug("Received story content", zap.Int("bytes", len(raw)))

	pages, err := ParsePages(raw)
	if err != nil {
		g.logger.Error("Failed to parse story content", zap.Error(err), zap.String("raw", raw))
		return "", nil, models.NewGenerationError("parse story", err)
	}
	if want := req.BookLength.PageRange(); !want.Contains(len(pages)) {
		g.logger.Warn("Story page count outside requested range",
			zap.Int("pages", len(pages)), zap.Stringer("want", want))
	}

	title, err := g.title(ctx, raw)
	if err != nil {
		return "", nil, err
	}

	g.logger.Info("Story generated", zap.String("title", title), zap.Int("pages", len(pages)))
	return title, pages, nil
}

func (g *Generator) title(ctx context.Context, storyContent string) (string, error) {
	raw, err := g.llm.Complete(ctx, generation.TextRequest{
		Model:     g.opts.TitleModel,
		Prompt:    BuildTitlePrompt(storyContent),
		MaxTokens: g.opts.TitleMaxTokens,
	})
	if err != nil {
		g.logger.Error("Title completion failed", zap.Error(err))
		return "", models.NewGenerationError("generate title", err)
	}
	title := CleanTitle(raw)
	if title == "" {
		return "", models.NewGenerationError("generate title", errors.New("model returned empty title"))
	}
	return title, nil
}
