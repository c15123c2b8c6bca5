package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIProvider implements Provider for the OpenAI chat completions API.
// Its cost is always unknown.
type OpenAIProvider struct {
	mu      sync.RWMutex
	apiKey  string
	baseURL string

	httpClient *http.Client
}

// OpenAIConfig holds configuration for the OpenAI provider.
// Empty fields fall back to OPENAI_API_KEY and OPENAI_BASE_URL.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // default: https://api.openai.com/v1
	HTTPClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newLLMHTTPClient()
	}

	return &OpenAIProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) SetAPIKey(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apiKey = key
}

func (p *OpenAIProvider) APIKey() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.apiKey
}

func (p *OpenAIProvider) IsConfigured() bool {
	return p.APIKey() != ""
}

func (p *OpenAIProvider) SetBaseURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseURL = url
}

func (p *OpenAIProvider) BaseURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baseURL
}

func (p *OpenAIProvider) Complete(ctx context.Context, model string, messages []Message) (*CompletionResult, error) {
	p.mu.RLock()
	apiKey, baseURL := p.apiKey, p.baseURL
	p.mu.RUnlock()

	resp, err := chatCompletion(ctx, apiKey, baseURL, p.httpClient, bareModel(model), messages)
	if err != nil {
		return nil, err
	}
	return completionResult(model, resp, domain.UnknownCost())
}

// chatCompletion sends one request to an OpenAI-compatible chat completions
// endpoint. Retries are left to the caller.
func chatCompletion(ctx context.Context, apiKey, baseURL string, httpClient *http.Client, model string, messages []Message, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/"),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}, opts...)
	client := openai.NewClient(opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return resp, nil
}

// completionResult takes the first choice of resp
func completionResult(model string, resp *openai.ChatCompletion, cost domain.Cost) (*CompletionResult, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}
	return &CompletionResult{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: usageOf(resp),
		Cost:  cost,
	}, nil
}

func usageOf(resp *openai.ChatCompletion) domain.TokenUsage {
	return domain.TokenUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
