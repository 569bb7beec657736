package main

import (
	"context"
	"fmt"

	"github.com/xhad/wikiquiz/internal/logger"
	"github.com/xhad/wikiquiz/internal/types"
	cfgPkg "github.com/xhad/wikiquiz/pkg/config"
	"github.com/xhad/wikiquiz/pkg/llm"
	"github.com/xhad/wikiquiz/pkg/quiz"
	"github.com/xhad/wikiquiz/pkg/scraper"
	"github.com/xhad/wikiquiz/pkg/store"
	"go.uber.org/zap"
)

// app wires the components for one command invocation.
type app struct {
	config  *cfgPkg.Config
	log     *zap.Logger
	store   types.Store
	service *quiz.Service
}

func newApp(ctx context.Context, cfg *cfgPkg.Config) (*app, error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	generator, err := llm.NewWithConfig(llm.GeneratorConfig{
		Provider:     cfg.LLM.Provider,
		Model:        cfg.LLM.Model,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		MaxTextChars: cfg.LLM.MaxTextChars,
		Logger:       log,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize quiz generator: %w", err)
	}

	fetcher := scraper.NewWithConfig(scraper.ScraperConfig{
		UserAgent:      cfg.Scraper.UserAgent,
		Timeout:        cfg.Scraper.Timeout,
		MaxAttempts:    cfg.Scraper.MaxAttempts,
		InitialBackoff: cfg.Scraper.InitialBackoff,
		MaxBackoff:     cfg.Scraper.MaxBackoff,
		RateLimit:      cfg.Scraper.RateLimit,
		Logger:         log,
	})

	service := quiz.NewService(st, fetcher, generator,
		quiz.WithValidator(scraper.NewValidator(cfg.Scraper.Host, cfg.Scraper.ExcludedNamespaces)),
		quiz.WithLogger(log),
	)

	return &app{config: cfg, log: log, store: st, service: service}, nil
}

func openStore(ctx context.Context, cfg *cfgPkg.Config, log *zap.Logger) (types.Store, error) {
	if cfg.Database.URL == "" {
		log.Warn("no database configured, quizzes are kept in memory only")
		return store.NewMemory(), nil
	}

	st, err := store.NewWithConfig(ctx, store.PostgresConfig{
		ConnString:  cfg.Database.URL,
		AutoMigrate: cfg.MigrateOnStart(),
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize datastore: %w", err)
	}
	return st, nil
}

func (a *app) Close() {
	a.store.Close()
	_ = a.log.Sync()
}
