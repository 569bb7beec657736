package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr           string        `yaml:"addr"`
		FrontendOrigin string        `yaml:"frontend_origin"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	LLM struct {
		Provider     string  `yaml:"provider"`
		BaseURL      string  `yaml:"base_url"`
		APIKey       string  `yaml:"api_key"`
		Model        string  `yaml:"model"`
		MaxTokens    int     `yaml:"max_tokens"`
		Temperature  float64 `yaml:"temperature"`
		MaxTextChars int     `yaml:"max_text_chars"`
	} `yaml:"llm"`

	Database struct {
		URL         string `yaml:"url"`
		AutoMigrate *bool  `yaml:"auto_migrate"`
	} `yaml:"database"`

	Scraper struct {
		Host               string        `yaml:"host"`
		UserAgent          string        `yaml:"user_agent"`
		Timeout            time.Duration `yaml:"timeout"`
		MaxAttempts        int           `yaml:"max_attempts"`
		InitialBackoff     time.Duration `yaml:"initial_backoff"`
		MaxBackoff         time.Duration `yaml:"max_backoff"`
		RateLimit          float64       `yaml:"rate_limit"`
		ExcludedNamespaces []string      `yaml:"excluded_namespaces"`
	} `yaml:"scraper"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/wikiquiz/config.yaml"),
			"/etc/wikiquiz/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "error parsing config file %s", path)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// MigrateOnStart reports whether the database schema should be created on start.
func (c *Config) MigrateOnStart() bool {
	return c.Database.AutoMigrate == nil || *c.Database.AutoMigrate
}

func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if config.Server.FrontendOrigin == "" {
		config.Server.FrontendOrigin = "http://localhost:5173"
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 2 * time.Minute
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxTextChars == 0 {
		config.LLM.MaxTextChars = 12000
	}

	if config.Scraper.Host == "" {
		config.Scraper.Host = "wikipedia.org"
	}
	if config.Scraper.UserAgent == "" {
		config.Scraper.UserAgent = "WikiQuiz/1.0 (+https://github.com/xhad/wikiquiz)"
	}
	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 10 * time.Second
	}
	if config.Scraper.MaxAttempts == 0 {
		config.Scraper.MaxAttempts = 3
	}
	if config.Scraper.InitialBackoff == 0 {
		config.Scraper.InitialBackoff = time.Second
	}
	if config.Scraper.MaxBackoff == 0 {
		config.Scraper.MaxBackoff = 4 * time.Second
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if len(config.Scraper.ExcludedNamespaces) == 0 {
		config.Scraper.ExcludedNamespaces = []string{"Special", "Talk", "Help"}
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if origin := os.Getenv("FRONTEND_ORIGIN"); origin != "" {
		config.Server.FrontendOrigin = origin
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
