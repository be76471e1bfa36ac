package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/contract-auditor/internal/audit"
	"github.com/jonathan/contract-auditor/internal/config"
	"github.com/jonathan/contract-auditor/internal/db"
	"github.com/jonathan/contract-auditor/internal/extraction"
	"github.com/jonathan/contract-auditor/internal/lifecycle"
	"github.com/jonathan/contract-auditor/internal/llm"
	"github.com/jonathan/contract-auditor/internal/logging"
	"github.com/jonathan/contract-auditor/internal/rules"
)

// app is the wired service plus whatever must be released when a command ends.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	service *audit.Service
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("app.close.failed", "error", err)
		}
	}
}

// loadSettings layers flags over environment over the config file over defaults.
func loadSettings() (config.Config, error) {
	var file *config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		file = loaded
	}

	cfg := config.Resolve(file)
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if rulesPath != "" {
		cfg.RulesPath = rulesPath
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newApp builds the audit service from resolved settings.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	a := &app{cfg: cfg, logger: logger}

	engine, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	// A nil interface, not a nil *GeminiClient, marks the model as unconfigured.
	var client llm.Client
	if cfg.APIKey != "" {
		llmConfig := llm.DefaultConfig().WithModel(llm.TierStandard, cfg.Model)
		client, err = llm.NewClient(ctx, llmConfig, cfg.APIKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
	} else {
		logger.Warn("app.model.unconfigured", "hint", "set GEMINI_API_KEY; every extraction will fall back to the default record")
	}

	extractor := extraction.New(client, extraction.Options{
		MaxChars: cfg.MaxChars,
		Timeout:  time.Duration(cfg.ModelTimeout),
		Retries:  cfg.Retries(),
	}, logger)

	a.service = audit.New(audit.Deps{
		Store:     store,
		Extractor: extractor,
		Rules:     engine,
		Lifecycle: lifecycle.NewManager(cfg.ConfidenceThreshold),
		Logger:    logger,
	})
	return a, nil
}
