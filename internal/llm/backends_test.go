package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/langtutor/internal/pricing"
)

func TestNewOpenRouterProvider_FromEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("OPENROUTER_BASE_URL", "")

	p := NewOpenRouterProvider(OpenRouterConfig{})
	if p.APIKey() != "env-key" {
		t.Errorf("APIKey() = %q, want env-key", p.APIKey())
	}
	if p.BaseURL() != defaultOpenRouterURL {
		t.Errorf("BaseURL() = %q, want %q", p.BaseURL(), defaultOpenRouterURL)
	}
	if !p.IsConfigured() {
		t.Error("IsConfigured() should be true")
	}

	p.SetAPIKey("")
	if p.IsConfigured() {
		t.Error("IsConfigured() should be false after clearing the key")
	}
	p.SetBaseURL("http://example.test")
	if p.BaseURL() != "http://example.test" {
		t.Errorf("BaseURL() = %q after SetBaseURL", p.BaseURL())
	}
}

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	p := NewOpenAIProvider(OpenAIConfig{})
	if p.Name() != "openai" {
		t.Errorf("Name() = %q", p.Name())
	}
	if p.IsConfigured() {
		t.Error("IsConfigured() should be false without a key")
	}
	if p.BaseURL() != defaultOpenAIURL {
		t.Errorf("BaseURL() = %q, want %q", p.BaseURL(), defaultOpenAIURL)
	}
}

func TestNewClaudeProvider_Defaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_BASE_URL", "")

	p := NewClaudeProvider(ClaudeConfig{})
	if p.BaseURL() != defaultClaudeURL {
		t.Errorf("BaseURL() = %q", p.BaseURL())
	}
	if p.maxTokens != 4096 {
		t.Errorf("maxTokens = %d, want 4096", p.maxTokens)
	}
}

func TestOpenRouterProvider_Complete(t *testing.T) {
	var gotModel, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %v, want POST", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Path = %v, want .../chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "gen-1",
			"object": "chat.completion",
			"created": 1,
			"model": "google/gemini-2.5-flash-preview",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "<exercise>Write about your town</exercise>"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 500, "total_tokens": 1500}
		}`)
	}))
	defer server.Close()

	p := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "or-key",
		BaseURL: server.URL,
		Prices:  pricing.DefaultTable(),
	})

	got, err := p.Complete(context.Background(), "openrouter/google/gemini-2.5-flash-preview", []Message{UserMessage("Hello")})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != "<exercise>Write about your town</exercise>" {
		t.Errorf("Text = %q", got.Text)
	}
	if gotModel != "google/gemini-2.5-flash-preview" {
		t.Errorf("model sent = %q, want routing prefix stripped", gotModel)
	}
	if gotAuth != "Bearer or-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	amount, ok := got.Cost.Value()
	if !ok {
		t.Fatal("Cost should be known for a priced model")
	}
	want := 1000*0.15e-6 + 500*0.60e-6
	if math.Abs(amount-want) > 1e-12 {
		t.Errorf("Cost = %v, want %v", amount, want)
	}
}

func TestOpenRouterProvider_Complete_UnpricedModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	}))
	defer server.Close()

	p := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
	got, err := p.Complete(context.Background(), "openrouter/vendor/unknown-model", []Message{UserMessage("q")})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if _, ok := got.Cost.Value(); ok {
		t.Error("Cost should be unknown for an unpriced model")
	}
}

func TestOpenRouterProvider_Complete_HTTPError(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
	}))
	defer server.Close()

	p := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
	_, err := p.Complete(context.Background(), "openrouter/google/gemini-2.5-flash-preview", []Message{UserMessage("q")})
	if err == nil {
		t.Fatal("Complete() expected error for HTTP 503")
	}
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("StatusCode() = %d, want 503", StatusCode(err))
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1 (no retries inside the adapter)", calls)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Path = %v, want .../chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %v", r.Header.Get("Authorization"))
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "gpt-4o" {
			t.Errorf("Model = %q, want gpt-4o", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "Hello" {
			t.Errorf("Messages = %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello from OpenAI!"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	got, err := p.Complete(context.Background(), "openai/gpt-4o", []Message{
		{Role: RoleSystem, Content: "You are a tutor."},
		UserMessage("Hello"),
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != "Hello from OpenAI!" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q, want the configured id", got.Model)
	}
	if got.Usage.InputTokens != 10 || got.Usage.OutputTokens != 5 {
		t.Errorf("Usage = %+v", got.Usage)
	}
	if _, ok := got.Cost.Value(); ok {
		t.Error("OpenAI cost should always be unknown")
	}
}

func TestOpenAIProvider_Complete_HTTPError(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "bad", BaseURL: server.URL})
	_, err := p.Complete(context.Background(), "gpt-4o", []Message{UserMessage("Hello")})
	if err == nil {
		t.Fatal("Complete() expected error for HTTP 401")
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("StatusCode() = %d, want 401 (%v)", StatusCode(err), err)
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1", calls)
	}
}

func TestOpenAIProvider_Complete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "gpt-4o", "choices": []}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	_, err := p.Complete(context.Background(), "gpt-4o", []Message{UserMessage("Hello")})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("Complete() error = %v, want ErrEmptyCompletion", err)
	}
}

func TestClaudeProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Path = %v, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %v, want test-key", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version = %v, want 2023-06-01", r.Header.Get("anthropic-version"))
		}

		var req claudeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.System != "Be brief." {
			t.Errorf("System = %q, want Be brief.", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("Messages = %+v", req.Messages)
		}
		if req.Model != "claude-3-opus" {
			t.Errorf("Model = %q, want claude-3-opus", req.Model)
		}

		resp := claudeResponse{ID: "msg_test", Type: "message", Role: "assistant", StopReason: "end_turn"}
		resp.Content = append(resp.Content, struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "text", Text: "Hello from Claude!"})
		resp.Usage.InputTokens = 100
		resp.Usage.OutputTokens = 50
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewClaudeProvider(ClaudeConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Prices:  pricing.Table{"claude-3-opus": {InputPerToken: 15e-6, OutputPerToken: 75e-6}},
	})

	got, err := p.Complete(context.Background(), "openrouter/anthropic/claude-3-opus", []Message{
		{Role: RoleSystem, Content: "Be brief."},
		UserMessage("Hello"),
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != "Hello from Claude!" {
		t.Errorf("Text = %q", got.Text)
	}
	amount, ok := got.Cost.Value()
	if !ok || math.Abs(amount-(100*15e-6+50*75e-6)) > 1e-12 {
		t.Errorf("Cost = %v, %v", amount, ok)
	}
}

func TestClaudeProvider_Complete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal server error"}`))
	}))
	defer server.Close()

	p := NewClaudeProvider(ClaudeConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := p.Complete(context.Background(), "claude-3-opus", []Message{UserMessage("Hello")})
	if err == nil {
		t.Fatal("Complete() expected error for HTTP 500")
	}
	if StatusCode(err) != 500 {
		t.Errorf("StatusCode() = %d, want 500", StatusCode(err))
	}
}

func TestGeminiProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash-preview:generateContent") {
			t.Errorf("Path = %v", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "<hints>Use past tense.</hints>"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 200, "candidatesTokenCount": 40, "totalTokenCount": 240}
		}`)
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "g-key", BaseURL: server.URL})
	got, err := p.Complete(context.Background(), "google/gemini-2.5-flash-preview", []Message{UserMessage("hints please")})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != "<hints>Use past tense.</hints>" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Usage.InputTokens != 200 || got.Usage.OutputTokens != 40 {
		t.Errorf("Usage = %+v", got.Usage)
	}
	if _, ok := got.Cost.Value(); !ok {
		t.Error("Cost should be known for a priced model")
	}
}

func TestBuildGeminiRequest(t *testing.T) {
	contents, config := buildGeminiRequest([]Message{
		{Role: RoleSystem, Content: "You are a tutor."},
		UserMessage("Question"),
		{Role: RoleAssistant, Content: "Answer"},
	})

	if len(contents) != 2 {
		t.Fatalf("len(contents) = %d, want 2", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %q, %q", contents[0].Role, contents[1].Role)
	}
	if config.SystemInstruction == nil || config.SystemInstruction.Parts[0].Text != "You are a tutor." {
		t.Error("system message should become the system instruction")
	}
}

func TestNewLLMHTTPClient(t *testing.T) {
	client := newLLMHTTPClient()
	if client == nil {
		t.Fatal("newLLMHTTPClient() returned nil")
	}
	if client.Transport == nil {
		t.Error("Transport should not be nil")
	}
}
