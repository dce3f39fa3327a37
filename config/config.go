package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/coreybb/storybook/generation"
)

const (
	defaultPort          = "8080"
	defaultDBDriver      = "postgres"
	defaultDatabaseURL   = "user=postgres password=password dbname=storybook host=localhost port=5432 sslmode=disable"
	defaultStorageDir    = "_output"
	defaultLayout        = "letter"
	defaultImageSize     = "1024x1024"
	defaultImageModel    = "dall-e-3"
	defaultFetchTimeout  = 30 * time.Second
	defaultLogLevel      = "info"
	defaultLogFormat     = "production"
	defaultShutdownAfter = 15 * time.Second
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Render     RenderConfig     `yaml:"render"`
	Text       TextConfig       `yaml:"text"`
	Images     ImageConfig      `yaml:"images"`
	Moderation ModerationConfig `yaml:"moderation"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite
	URL    string `yaml:"url"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type RenderConfig struct {
	FontDir      string        `yaml:"font_dir"`
	Layout       string        `yaml:"layout"` // letter or kdp
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type TextConfig struct {
	Provider       string `yaml:"provider"` // openai, gemini or mock
	StoryModel     string `yaml:"story_model"`
	TitleModel     string `yaml:"title_model"`
	StoryMaxTokens int    `yaml:"story_max_tokens"`
	TitleMaxTokens int    `yaml:"title_max_tokens"`
}

type ImageConfig struct {
	Provider string `yaml:"provider"` // openai or mock
	Model    string `yaml:"model"`
	Size     string `yaml:"size"`
}

type ModerationConfig struct {
	Provider string `yaml:"provider"` // openai or mock
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // production or development
}

// Load reads the optional YAML file at path, applies environment overrides
// and fills defaults. A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Port, "PORT")
	set(&c.Database.Driver, "DB_DRIVER")
	set(&c.Database.URL, "DB_CONNECTION_STRING")
	set(&c.Storage.Dir, "STORAGE_DIR")
	set(&c.Render.FontDir, "FONT_DIR")
	set(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&c.Gemini.APIKey, "GEMINI_API_KEY")
	set(&c.Text.Provider, "TEXT_PROVIDER")
	set(&c.Images.Provider, "IMAGE_PROVIDER")
	set(&c.Moderation.Provider, "MODERATION_PROVIDER")
	set(&c.Log.Level, "LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	def := func(dst *string, val string) {
		if *dst == "" {
			*dst = val
		}
	}
	def(&c.Server.Port, defaultPort)
	def(&c.Database.Driver, defaultDBDriver)
	def(&c.Database.URL, defaultDatabaseURL)
	def(&c.Storage.Dir, defaultStorageDir)
	def(&c.Render.Layout, defaultLayout)
	def(&c.Text.Provider, generation.ProviderOpenAI)
	def(&c.Images.Provider, generation.ProviderOpenAI)
	def(&c.Images.Model, defaultImageModel)
	def(&c.Images.Size, defaultImageSize)
	def(&c.Moderation.Provider, generation.ProviderOpenAI)
	def(&c.Log.Level, defaultLogLevel)
	def(&c.Log.Format, defaultLogFormat)
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = defaultShutdownAfter
	}
	if c.Render.FetchTimeout <= 0 {
		c.Render.FetchTimeout = defaultFetchTimeout
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Render.Layout != "letter" && c.Render.Layout != "kdp" {
		errs = append(errs, fmt.Errorf("render.layout must be letter or kdp, got %q", c.Render.Layout))
	}
	switch c.Text.Provider {
	case generation.ProviderOpenAI, generation.ProviderGemini, generation.ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("text.provider %q is not supported", c.Text.Provider))
	}
	for name, p := range map[string]string{"images.provider": c.Images.Provider, "moderation.provider": c.Moderation.Provider} {
		if p != generation.ProviderOpenAI && p != generation.ProviderMock {
			errs = append(errs, fmt.Errorf("%s %q is not supported", name, p))
		}
	}
	return errors.Join(errs...)
}

// Warnings lists settings that will keep the service from starting or
// fall back to local defaults.
func (c *Config) Warnings() []string {
	var warnings []string
	usesOpenAI := c.Text.Provider == generation.ProviderOpenAI ||
		c.Images.Provider == generation.ProviderOpenAI ||
		c.Moderation.Provider == generation.ProviderOpenAI
	if usesOpenAI && c.OpenAI.APIKey == "" {
		warnings = append(warnings, "OPENAI_API_KEY not set. OpenAI providers cannot be created; use the mock providers for offline runs.")
	}
	if c.Text.Provider == generation.ProviderGemini && c.Gemini.APIKey == "" {
		warnings = append(warnings, "GEMINI_API_KEY not set. The gemini text provider cannot be created.")
	}
	if c.Database.URL == defaultDatabaseURL {
		warnings = append(warnings, "DB_CONNECTION_STRING not set, using default local connection string.")
	}
	return warnings
}

// LogWarnings reports Warnings through logger.
func (c *Config) LogWarnings(logger *zap.Logger) {
	for _, w := range c.Warnings() {
		logger.Warn(w)
	}
}
