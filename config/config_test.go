package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "DB_DRIVER", "DB_CONNECTION_STRING", "STORAGE_DIR", "FONT_DIR",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY", "TEXT_PROVIDER",
	"IMAGE_PROVIDER", "MODERATION_PROVIDER", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "_output", cfg.Storage.Dir)
	assert.Equal(t, "letter", cfg.Render.Layout)
	assert.Equal(t, "openai", cfg.Text.Provider)
	assert.Equal(t, "1024x1024", cfg.Images.Size)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Contains(t, cfg.Warnings(), "OPENAI_API_KEY not set. OpenAI providers cannot be created; use the mock providers for offline runs.")
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "storybook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
  shutdown_timeout: 5s
database:
  driver: sqlite
  url: file:books.db
render:
  layout: kdp
text:
  provider: gemini
  story_model: gemini-2.5-flash
  story_max_tokens: 3000
gemini:
  api_key: g-key
images:
  provider: mock
moderation:
  provider: mock
log:
  level: debug
  format: development
`), 0o644))

	t.Setenv("PORT", "7000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port, "env wins over file")
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "kdp", cfg.Render.Layout)
	assert.Equal(t, "gemini-2.5-flash", cfg.Text.StoryModel)
	assert.Equal(t, 3000, cfg.Text.StoryMaxTokens)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Warnings())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("TEXT_PROVIDER", "llama")
	_, err := Load("")
	require.Error(t, err)
	assert.ErrorContains(t, err, "database.driver")
	assert.ErrorContains(t, err, "text.provider")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "development"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
