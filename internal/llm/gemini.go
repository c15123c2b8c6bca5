package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/pricing"
	"google.golang.org/genai"
)

// GeminiProvider implements Provider for the Gemini API through genai
type GeminiProvider struct {
	mu      sync.RWMutex
	apiKey  string
	baseURL string

	prices     pricing.Table
	httpClient *http.Client
}

// GeminiConfig holds configuration for the Gemini provider.
// Empty fields fall back to GEMINI_API_KEY and GEMINI_BASE_URL; an empty
// base URL uses the SDK default endpoint.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Prices     pricing.Table
	HTTPClient *http.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("GEMINI_BASE_URL")
	}
	if cfg.Prices == nil {
		cfg.Prices = pricing.DefaultTable()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newLLMHTTPClient()
	}

	return &GeminiProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		prices:     cfg.Prices,
		httpClient: cfg.HTTPClient,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) SetAPIKey(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apiKey = key
}

func (p *GeminiProvider) APIKey() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.apiKey
}

func (p *GeminiProvider) IsConfigured() bool {
	return p.APIKey() != ""
}

func (p *GeminiProvider) SetBaseURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseURL = url
}

func (p *GeminiProvider) BaseURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baseURL
}

func (p *GeminiProvider) Complete(ctx context.Context, model string, messages []Message) (*CompletionResult, error) {
	p.mu.RLock()
	apiKey, baseURL := p.apiKey, p.baseURL
	p.mu.RUnlock()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  p.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	contents, config := buildGeminiRequest(messages)
	result, err := client.Models.GenerateContent(ctx, bareModel(model), contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(result.Candidates) == 0 {
		return nil, ErrEmptyCompletion
	}

	var usage domain.TokenUsage
	if md := result.UsageMetadata; md != nil {
		usage.InputTokens = int(md.PromptTokenCount)
		usage.OutputTokens = int(md.CandidatesTokenCount)
	}

	return &CompletionResult{
		Text:  result.Text(),
		Model: model,
		Usage: usage,
		Cost:  p.prices.Compute(model, usage),
	}, nil
}

func buildGeminiRequest(messages []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}
	return contents, config
}
