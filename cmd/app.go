package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/coreybb/storybook/config"
	"github.com/coreybb/storybook/datastore"
	"github.com/coreybb/storybook/ebook"
	"github.com/coreybb/storybook/generation"
	"github.com/coreybb/storybook/illustration"
	"github.com/coreybb/storybook/moderation"
	"github.com/coreybb/storybook/processing"
	"github.com/coreybb/storybook/storage"
	"github.com/coreybb/storybook/story"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sql.DB
	users     *datastore.UserRepository
	books     *datastore.BookRepository
	storer    *storage.LocalFileStorer
	processor *processing.BookProcessor
	epub      *ebook.EPUBGenerator
}

// openApp connects to the database and builds the generation pipeline.
func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	db, err := datastore.Open(ctx, cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("database setup failed: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		users:  datastore.NewUserRepository(db),
		books:  datastore.NewBookRepository(db),
		storer: storage.NewLocalFileStorer(cfg.Storage.Dir, logger),
	}
	if err := a.buildPipeline(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildPipeline(ctx context.Context) error {
	cfg := a.cfg

	textSettings := generation.Settings{Provider: cfg.Text.Provider, APIKey: cfg.OpenAI.APIKey, BaseURL: cfg.OpenAI.BaseURL}
	if cfg.Text.Provider == generation.ProviderGemini {
		textSettings = generation.Settings{Provider: cfg.Text.Provider, APIKey: cfg.Gemini.APIKey}
	}
	llm, err := generation.NewTextGenerator(ctx, textSettings)
	if err != nil {
		return fmt.Errorf("failed to create text generator: %w", err)
	}
	stories, err := story.NewGenerator(llm, story.Options{
		StoryModel:     cfg.Text.StoryModel,
		TitleModel:     cfg.Text.TitleModel,
		StoryMaxTokens: cfg.Text.StoryMaxTokens,
		TitleMaxTokens: cfg.Text.TitleMaxTokens,
	}, a.logger)
	if err != nil {
		return err
	}

	openaiSettings := generation.Settings{Provider: generation.ProviderOpenAI, APIKey: cfg.OpenAI.APIKey, BaseURL: cfg.OpenAI.BaseURL}

	var imageClient illustration.ImageClient = illustration.PlaceholderImageClient{}
	if cfg.Images.Provider == generation.ProviderOpenAI {
		client, err := generation.NewOpenAIClient(openaiSettings)
		if err != nil {
			return fmt.Errorf("failed to create image client: %w", err)
		}
		imageClient = illustration.NewOpenAIImageClient(client, cfg.Images.Model)
	}
	images, err := illustration.NewGenerator(imageClient, cfg.Images.Size, a.logger)
	if err != nil {
		return err
	}

	var classifier moderation.Classifier = moderation.AllowAllClassifier{}
	if cfg.Moderation.Provider == generation.ProviderOpenAI {
		client, err := generation.NewOpenAIClient(openaiSettings)
		if err != nil {
			return fmt.Errorf("failed to create moderation client: %w", err)
		}
		classifier = moderation.NewOpenAIClassifier(client)
	}
	moderator, err := moderation.NewModerator(classifier, a.logger)
	if err != nil {
		return err
	}

	fetcher := ebook.NewHTTPFetcher(cfg.Render.FetchTimeout)
	renderer, err := ebook.NewPDFRenderer(fetcher, cfg.Render.FontDir, ebook.LayoutByName(cfg.Render.Layout), a.logger)
	if err != nil {
		return err
	}
	a.epub, err = ebook.NewEPUBGenerator(fetcher, a.logger)
	if err != nil {
		return err
	}

	a.processor, err = processing.NewBookProcessor(stories, moderator, images, renderer, a.storer, a.books, a.logger)
	return err
}

func (a *app) Close() error {
	return a.db.Close()
}
