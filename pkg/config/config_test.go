package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"OLLAMA_BASE_URL", "GROQ_API_KEY", "LLM_API_KEY", "DATABASE_URL", "FRONTEND_ORIGIN", "PORT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  addr: ":9090"
  frontend_origin: "https://quiz.example.com"

llm:
  provider: "openai"
  base_url: "https://api.groq.com/openai/v1"
  api_key: "secret"
  model: "llama-3.3-70b-versatile"
  max_tokens: 4000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/wiki_quiz"
  auto_migrate: false

scraper:
  timeout: 5s
  max_attempts: 4
  initial_backoff: 500ms
  max_backoff: 2s
  excluded_namespaces:
    - "Special"
    - "Talk"
    - "Help"
    - "User"

log:
  level: "debug"
  development: true
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, "https://quiz.example.com", config.Server.FrontendOrigin)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", config.LLM.Model)
	assert.Equal(t, 4000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 12000, config.LLM.MaxTextChars)
	assert.Equal(t, "postgres://localhost:5432/wiki_quiz", config.Database.URL)
	assert.False(t, config.MigrateOnStart())
	assert.Equal(t, 5*time.Second, config.Scraper.Timeout)
	assert.Equal(t, 4, config.Scraper.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, config.Scraper.InitialBackoff)
	assert.Equal(t, 2*time.Second, config.Scraper.MaxBackoff)
	assert.Equal(t, []string{"Special", "Talk", "Help", "User"}, config.Scraper.ExcludedNamespaces)
	assert.Equal(t, "wikipedia.org", config.Scraper.Host)
	assert.Equal(t, "debug", config.Log.Level)
	assert.True(t, config.Log.Development)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, 10*time.Second, config.Scraper.Timeout)
	assert.Equal(t, 3, config.Scraper.MaxAttempts)
	assert.Equal(t, time.Second, config.Scraper.InitialBackoff)
	assert.Equal(t, 4*time.Second, config.Scraper.MaxBackoff)
	assert.True(t, config.MigrateOnStart())
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid llm",
			mutate: func(c *Config) {
				c.LLM.Provider = "openai"
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 0
				c.LLM.Temperature = 3.0
			},
			errorMessages: []string{
				"llm.api_key: API key is required",
				"llm.base_url: invalid LLM base URL",
				"llm.max_tokens: max_tokens must be between 1 and 32768",
				"llm.temperature: temperature must be between 0 and 2",
			},
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.LLM.Provider = "gemini"
			},
			errorMessages: []string{"llm.provider: unknown provider"},
		},
		{
			name: "invalid database and scraper",
			mutate: func(c *Config) {
				c.Database.URL = "mysql://localhost/db"
				c.Scraper.MaxAttempts = 0
				c.Scraper.MaxBackoff = 10 * time.Millisecond
				c.Scraper.ExcludedNamespaces = []string{"Talk:"}
			},
			errorMessages: []string{
				"database.url: invalid database URL",
				"scraper.max_attempts: max_attempts must be positive",
				"scraper.max_backoff: backoff must be positive",
				"scraper.excluded_namespaces: invalid namespace",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("PORT", "7000")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "groq-key", config.LLM.APIKey)
	assert.Equal(t, ":7000", config.Server.Addr)
}
