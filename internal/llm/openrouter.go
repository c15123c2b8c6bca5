package llm

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/langtutor/internal/pricing"
	"github.com/openai/openai-go/option"
)

const defaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider talks to OpenRouter's OpenAI-compatible API and
// prices completions from reported token usage.
type OpenRouterProvider struct {
	mu      sync.RWMutex
	apiKey  string
	baseURL string

	prices     pricing.Table
	httpClient *http.Client
}

// OpenRouterConfig holds configuration for the OpenRouter provider.
// Empty fields fall back to OPENROUTER_API_KEY and OPENROUTER_BASE_URL.
type OpenRouterConfig struct {
	APIKey     string
	BaseURL    string
	Prices     pricing.Table
	HTTPClient *http.Client
}

// NewOpenRouterProvider creates a new OpenRouter provider
func NewOpenRouterProvider(cfg OpenRouterConfig) *OpenRouterProvider {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENROUTER_BASE_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterURL
	}
	if cfg.Prices == nil {
		cfg.Prices = pricing.DefaultTable()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newLLMHTTPClient()
	}

	return &OpenRouterProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		prices:     cfg.Prices,
		httpClient: cfg.HTTPClient,
	}
}

func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

func (p *OpenRouterProvider) SetAPIKey(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apiKey = key
}

func (p *OpenRouterProvider) APIKey() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.apiKey
}

func (p *OpenRouterProvider) IsConfigured() bool {
	return p.APIKey() != ""
}

func (p *OpenRouterProvider) SetBaseURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseURL = url
}

func (p *OpenRouterProvider) BaseURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baseURL
}

func (p *OpenRouterProvider) Complete(ctx context.Context, model string, messages []Message) (*CompletionResult, error) {
	p.mu.RLock()
	apiKey, baseURL := p.apiKey, p.baseURL
	p.mu.RUnlock()

	resp, err := chatCompletion(ctx, apiKey, baseURL, p.httpClient, openRouterModel(model), messages,
		option.WithHeader("X-Title", "Language Tutor"),
	)
	if err != nil {
		return nil, err
	}
	return completionResult(model, resp, p.prices.Compute(model, usageOf(resp)))
}

// openRouterModel drops the routing prefix used in configured model ids,
// "openrouter/google/x" is sent as "google/x".
func openRouterModel(model string) string {
	return strings.TrimPrefix(model, "openrouter/")
}
