// Package app wires configuration, providers, the exercise catalog, the
// session store and the tutor service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/langtutor/internal/catalog"
	"github.com/felixgeelhaar/langtutor/internal/config"
	"github.com/felixgeelhaar/langtutor/internal/llm"
	"github.com/felixgeelhaar/langtutor/internal/pricing"
	"github.com/felixgeelhaar/langtutor/internal/session"
	"github.com/felixgeelhaar/langtutor/internal/storage/sqlite"
	"github.com/felixgeelhaar/langtutor/internal/tutor"
)

// ProviderNames lists the supported backends
var ProviderNames = []string{"claude", "gemini", "openai", "openrouter"}

// App holds the long-lived components of one process
type App struct {
	Config   *config.LocalConfig
	Dir      string
	Registry *llm.Registry
	Catalog  *catalog.Registry
	Store    session.Store
	Tutor    *tutor.Service

	logger  *slog.Logger
	closers []io.Closer
}

// Options configures New
type Options struct {
	Config *config.LocalConfig
	// Dir is the configuration directory
	Dir    string
	Logger *slog.Logger
	// HTTPClient is shared by all providers when set
	HTTPClient *http.Client
}

// New builds the application. Providers without an API key are still
// registered so a key can be supplied later.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("app: missing config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config: opts.Config,
		Dir:    opts.Dir,
		logger: logger,
	}

	a.Registry = llm.NewRegistry()
	if err := a.setupLLMProviders(opts.HTTPClient); err != nil {
		a.Close()
		return nil, fmt.Errorf("setup llm providers: %w", err)
	}

	a.Catalog = catalog.NewRegistry(catalog.NewLoader(filepath.Join(opts.Dir, "packs")))
	if err := a.Catalog.Load(); err != nil {
		a.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	store, err := a.openStore()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.Store = store

	a.Tutor = tutor.NewService(tutor.Config{Logger: logger})
	if err := a.UseProvider(a.Config.LLM.DefaultProvider); err != nil {
		// Not fatal: commands that need a provider report it themselves
		logger.Warn("no usable provider", "error", err)
	}

	stats := a.Catalog.Stats()
	logger.Debug("application ready",
		"providers", a.Registry.List(),
		"languages", stats.LanguageCount,
		"exercise_types", stats.TypeCount,
		"storage", a.Config.Storage.Driver,
	)
	return a, nil
}

// setupLLMProviders registers every enabled provider
func (a *App) setupLLMProviders(httpClient *http.Client) error {
	prices := a.Config.PriceTable()

	names := make([]string, 0, len(a.Config.LLM.Providers))
	for name := range a.Config.LLM.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		providerCfg := a.Config.LLM.Providers[name]
		if !providerCfg.Enabled {
			continue
		}

		provider, err := newProvider(name, providerCfg, prices, httpClient)
		if err != nil {
			return err
		}
		if !provider.IsConfigured() {
			a.logger.Debug("provider enabled but no API key set", "name", name)
		}

		if a.Config.Resilience.Enabled {
			rp := llm.NewResilientProvider(provider, resilientConfig(a.Config.Resilience, a.logger))
			a.closers = append(a.closers, rp)
			provider = rp
		}

		a.Registry.Register(name, provider)
		a.logger.Debug("registered LLM provider", "name", name, "resilient", a.Config.Resilience.Enabled)
	}

	return nil
}

func newProvider(name string, cfg *config.ProviderConfig, prices pricing.Table, httpClient *http.Client) (llm.Provider, error) {
	switch name {
	case "openrouter":
		return llm.NewOpenRouterProvider(llm.OpenRouterConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Prices:     prices,
			HTTPClient: httpClient,
		}), nil
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			HTTPClient: httpClient,
		}), nil
	case "claude":
		return llm.NewClaudeProvider(llm.ClaudeConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Prices:     prices,
			HTTPClient: httpClient,
		}), nil
	case "gemini":
		return llm.NewGeminiProvider(llm.GeminiConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Prices:     prices,
			HTTPClient: httpClient,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", llm.ErrProviderNotFound, name)
	}
}

func resilientConfig(rc config.ResilienceConfig, logger *slog.Logger) llm.ResilientConfig {
	cfg := llm.DefaultResilientConfig()
	cfg.EnableRetry = rc.Retry
	cfg.MaxAttempts = rc.MaxAttempts
	cfg.EnableCircuitBreaker = rc.CircuitBreaker
	cfg.EnableBulkhead = rc.MaxConcurrent > 0
	cfg.MaxConcurrent = rc.MaxConcurrent
	cfg.EnableRateLimit = rc.RatePerSecond > 0
	cfg.RatePerSecond = rc.RatePerSecond
	cfg.Logger = logger
	return cfg
}

func (a *App) openStore() (session.Store, error) {
	path := a.Config.StoragePath(a.Dir)

	switch a.Config.Storage.Driver {
	case "sqlite":
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "sessions.db")
		}
		db, err := sqlite.OpenMigrated(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		return sqlite.NewSessionStore(db), nil
	default:
		return session.NewJSONStore(path)
	}
}

// UseProvider makes the named provider active. "auto" or "" picks the
// first configured one.
func (a *App) UseProvider(name string) error {
	if name != "" {
		if err := a.Registry.SetDefault(name); err != nil {
			return err
		}
	}
	provider, err := a.Registry.Default()
	if err != nil {
		return err
	}

	gen, check := a.Config.ModelsFor(provider.Name())
	a.Tutor.SetProvider(provider)
	a.Tutor.SetModels(tutor.Models{Generate: gen, Check: check})
	return nil
}

// Provider returns the active provider, or an error naming what is missing
func (a *App) Provider() (llm.Provider, error) {
	p := a.Tutor.Provider()
	if p == nil {
		return nil, tutor.ErrNoProvider
	}
	return p, nil
}

// ExportDir returns the Markdown export directory
func (a *App) ExportDir() string {
	return filepath.Join(a.Dir, "exports")
}

// Close releases stores and provider resources
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
