package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/langtutor/internal/app"
	"github.com/felixgeelhaar/langtutor/internal/catalog"
	"github.com/felixgeelhaar/langtutor/internal/config"
	"github.com/felixgeelhaar/langtutor/internal/domain"
	"github.com/felixgeelhaar/langtutor/internal/llm"
	"github.com/felixgeelhaar/langtutor/internal/session"
	"github.com/felixgeelhaar/langtutor/internal/tutor"
	"github.com/openai/openai-go"
)

// queueProvider returns queued responses in order
type queueProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
}

func (q *queueProvider) Name() string       { return "mock" }
func (q *queueProvider) SetAPIKey(string)   {}
func (q *queueProvider) APIKey() string     { return "test" }
func (q *queueProvider) IsConfigured() bool { return true }
func (q *queueProvider) SetBaseURL(string)  {}
func (q *queueProvider) BaseURL() string    { return "" }

func (q *queueProvider) Complete(_ context.Context, model string, _ []llm.Message) (*llm.CompletionResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	if len(q.responses) == 0 {
		return nil, errors.New("no response queued")
	}
	text := q.responses[0]
	q.responses = q.responses[1:]
	return &llm.CompletionResult{Text: text, Model: model, Cost: domain.KnownCost(0.001)}, nil
}

// setupTestServer creates an API server backed by a temp config dir.
// A nil provider leaves the app without a usable model backend.
func setupTestServer(t *testing.T, p *queueProvider) *Server {
	t.Helper()
	for _, key := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.New(context.Background(), app.Options{
		Config: config.DefaultLocalConfig(),
		Dir:    t.TempDir(),
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if p != nil {
		a.Registry.Register("mock", p)
		if err := a.UseProvider("mock"); err != nil {
			t.Fatalf("UseProvider() error = %v", err)
		}
	}

	server, err := NewServer(ServerConfig{App: a, Addr: "127.0.0.1:0", Version: "test", Logger: logger})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return server
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestNewServer_MissingApp(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("expected error without app")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer(t, nil)

	w := do(t, server, http.MethodGet, "/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request ID header")
	}

	resp := decode[map[string]any](t, w)
	if resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %v", resp["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	server := setupTestServer(t, &queueProvider{})

	w := do(t, server, http.MethodGet, "/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decode[map[string]any](t, w)
	if resp["status"] != "running" || resp["version"] != "test" {
		t.Errorf("unexpected status response: %v", resp)
	}
	if resp["provider"] != "mock" {
		t.Errorf("provider = %v, want mock", resp["provider"])
	}
	if resp["languages"] != float64(3) || resp["exercise_types"] != float64(36) {
		t.Errorf("catalog counts = %v / %v", resp["languages"], resp["exercise_types"])
	}
}

func TestListProvidersEndpoint(t *testing.T) {
	server := setupTestServer(t, nil)

	w := do(t, server, http.MethodGet, "/v1/providers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decode[struct {
		Default   string `json:"default"`
		Providers []struct {
			Name       string `json:"name"`
			Configured bool   `json:"configured"`
		} `json:"providers"`
	}](t, w)
	if resp.Default != "openrouter" {
		t.Errorf("default = %q", resp.Default)
	}
	if len(resp.Providers) != 1 || resp.Providers[0].Name != "openrouter" || resp.Providers[0].Configured {
		t.Errorf("providers = %+v", resp.Providers)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	server := setupTestServer(t, nil)

	w := do(t, server, http.MethodGet, "/v1/languages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("languages: status %d", w.Code)
	}
	langs := decode[struct {
		Languages []struct {
			Code          string `json:"code"`
			ExerciseCount int    `json:"exercise_count"`
		} `json:"languages"`
		Levels []string `json:"levels"`
	}](t, w)
	if len(langs.Languages) != 3 || langs.Languages[0].ExerciseCount != 12 {
		t.Errorf("languages = %+v", langs.Languages)
	}
	if len(langs.Levels) != 6 {
		t.Errorf("levels = %v", langs.Levels)
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"list by code", "/v1/languages/pl/exercises", http.StatusOK},
		{"list by name", "/v1/languages/Portuguese/exercises", http.StatusOK},
		{"unknown language", "/v1/languages/xx/exercises", http.StatusNotFound},
		{"type with slash", "/v1/languages/en/exercises/wishes%20/%20congratulations", http.StatusOK},
		{"type case-insensitive", "/v1/languages/en/exercises/ESSAY", http.StatusOK},
		{"unknown type", "/v1/languages/en/exercises/sonnet", http.StatusNotFound},
		{"custom has no definition", "/v1/languages/en/exercises/Custom", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, server, http.MethodGet, tt.path, nil)
			if w.Code != tt.status {
				t.Errorf("GET %s: status %d, want %d (%s)", tt.path, w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestReloadLanguages(t *testing.T) {
	server := setupTestServer(t, nil)
	packs := filepath.Join(server.app.Dir, "packs")
	if err := os.MkdirAll(packs, 0755); err != nil {
		t.Fatalf("create packs dir: %v", err)
	}
	german := "language: de\nname: German\ntypes:\n  - id: brief\n    min_words: 50\n    max_words: 80\n    requirements: Schreibe einen Brief.\n"
	if err := os.WriteFile(filepath.Join(packs, "de.yaml"), []byte(german), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	w := do(t, server, http.MethodPost, "/v1/languages/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload: status %d (%s)", w.Code, w.Body.String())
	}
	stats := decode[map[string]int](t, w)
	if stats["languages"] != 4 || stats["exercise_types"] != 37 {
		t.Errorf("reload stats = %v", stats)
	}
	if w := do(t, server, http.MethodGet, "/v1/languages/German/exercises/brief", nil); w.Code != http.StatusOK {
		t.Errorf("new type: status %d", w.Code)
	}

	// A broken pack is reported and the loaded catalog stays
	if err := os.WriteFile(filepath.Join(packs, "xx.yaml"), []byte("language: xx\nname: X\n"), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	if w := do(t, server, http.MethodPost, "/v1/languages/reload", nil); w.Code != http.StatusBadRequest {
		t.Errorf("broken reload: status %d, want 400", w.Code)
	}
	if w := do(t, server, http.MethodGet, "/v1/languages/de/exercises", nil); w.Code != http.StatusOK {
		t.Errorf("after failed reload: status %d", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	provider := &queueProvider{responses: []string{
		"<exercise>Write an essay about city life.</exercise><hints>Compare pros and cons.</hints>",
		`<mistakes>
- <text>people is</text> Use "people are".
</mistakes>
<stylistic_errors>
- <text></text> The text is too short for an essay.
</stylistic_errors>
<recommendations>Develop each argument.</recommendations>`,
		"<hints>Start with a thesis.</hints>",
		"An essay needs an introduction.",
	}}
	server := setupTestServer(t, provider)

	// Create
	w := do(t, server, http.MethodPost, "/v1/sessions", map[string]string{
		"language": "en", "level": "B2", "exercise_type": "essay",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}
	created := decode[struct {
		Session session.State `json:"session"`
		Cost    domain.Cost   `json:"cost"`
	}](t, w)
	id := created.Session.ID
	if id == "" || created.Session.ExerciseType != "essay" || created.Session.Exercise != "Write an essay about city life." {
		t.Fatalf("created session = %+v", created.Session)
	}
	if !created.Cost.Known || created.Cost.Amount != 0.001 {
		t.Errorf("cost = %+v", created.Cost)
	}

	// Check
	writing := "In the city people is busy."
	w = do(t, server, http.MethodPost, "/v1/sessions/"+id+"/check", map[string]string{"writing": writing})
	if w.Code != http.StatusOK {
		t.Fatalf("check: status %d: %s", w.Code, w.Body.String())
	}
	check := decode[struct {
		Mistakes []struct {
			Fragment string `json:"fragment"`
			Span     *struct {
				Start int `json:"start"`
				End   int `json:"end"`
			} `json:"span"`
		} `json:"mistakes"`
		StyleErrors []struct {
			Fragment string `json:"fragment"`
			Span     *struct{} `json:"span"`
		} `json:"style_errors"`
		WordCount   int         `json:"word_count"`
		Length      string      `json:"length"`
		SessionCost domain.Cost `json:"session_cost"`
	}](t, w)
	if len(check.Mistakes) != 1 || check.Mistakes[0].Span == nil {
		t.Fatalf("mistakes = %+v", check.Mistakes)
	}
	if span := check.Mistakes[0].Span; writing[span.Start:span.End] != "people is" {
		t.Errorf("span = %+v", span)
	}
	if len(check.StyleErrors) != 1 || check.StyleErrors[0].Span != nil {
		t.Errorf("style errors = %+v", check.StyleErrors)
	}
	if check.WordCount != 6 || check.Length != string(domain.LengthTooShort) {
		t.Errorf("length = %d %q", check.WordCount, check.Length)
	}
	if check.SessionCost.Amount != 0.002 {
		t.Errorf("session cost = %+v", check.SessionCost)
	}

	// Hints
	w = do(t, server, http.MethodPost, "/v1/sessions/"+id+"/hints", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("hints: status %d: %s", w.Code, w.Body.String())
	}
	if hints := decode[map[string]any](t, w); hints["hints"] != "Start with a thesis." {
		t.Errorf("hints = %v", hints)
	}

	// Ask on the latest session
	w = do(t, server, http.MethodPost, "/v1/sessions/latest/ask", map[string]string{"question": "How do I start?"})
	if w.Code != http.StatusOK {
		t.Fatalf("ask: status %d: %s", w.Code, w.Body.String())
	}
	if ans := decode[map[string]any](t, w); ans["answer"] != "An essay needs an introduction." || ans["session_id"] != id {
		t.Errorf("answer = %v", ans)
	}

	// Get
	w = do(t, server, http.MethodGet, "/v1/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	state := decode[session.State](t, w)
	if state.Writing != writing || len(state.QA) != 1 || state.Hints != "Start with a thesis." {
		t.Errorf("state = %+v", state)
	}

	// List
	w = do(t, server, http.MethodGet, "/v1/sessions", nil)
	if list := decode[struct {
		Sessions []session.State `json:"sessions"`
	}](t, w); len(list.Sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(list.Sessions))
	}

	// Export
	w = do(t, server, http.MethodGet, "/v1/sessions/"+id+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"# Language Tutor Export", "## Mistakes", `Use "people are".`, "How do I start?"} {
		if !strings.Contains(body, want) {
			t.Errorf("export missing %q", want)
		}
	}

	// Stats
	w = do(t, server, http.MethodGet, "/v1/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status %d", w.Code)
	}
	if stats := decode[map[string]any](t, w); stats["total_sessions"] != float64(1) || stats["mistakes"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}

	// Delete
	w = do(t, server, http.MethodDelete, "/v1/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d", w.Code)
	}
	w = do(t, server, http.MethodGet, "/v1/sessions/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", w.Code)
	}
}

func TestCreateSession_Custom(t *testing.T) {
	server := setupTestServer(t, &queueProvider{responses: []string{"<hints>Mention the date.</hints>"}})

	w := do(t, server, http.MethodPost, "/v1/sessions", map[string]any{
		"language": "pt", "level": "A1", "exercise": "Escreva um convite.", "hints": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Session session.State `json:"session"`
	}](t, w)
	if resp.Session.ExerciseType != catalog.Custom || resp.Session.Hints != "Mention the date." {
		t.Errorf("session = %+v", resp.Session)
	}
	if resp.Session.Language != "Portuguese" {
		t.Errorf("language = %q", resp.Session.Language)
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		provider *queueProvider
		method   string
		path     string
		body     any
		status   int
	}{
		{"unknown session", &queueProvider{}, http.MethodGet, "/v1/sessions/nope", nil, http.StatusNotFound},
		{"delete unknown session", &queueProvider{}, http.MethodDelete, "/v1/sessions/nope", nil, http.StatusNotFound},
		{"bad level", &queueProvider{}, http.MethodPost, "/v1/sessions", map[string]string{"level": "D1"}, http.StatusBadRequest},
		{"unknown type", &queueProvider{}, http.MethodPost, "/v1/sessions", map[string]string{"exercise_type": "sonnet"}, http.StatusNotFound},
		{"empty custom exercise", &queueProvider{}, http.MethodPost, "/v1/sessions", map[string]string{"exercise_type": "Custom"}, http.StatusBadRequest},
		{"no provider", nil, http.MethodPost, "/v1/sessions", map[string]string{}, http.StatusServiceUnavailable},
		{"backend error", &queueProvider{err: fmt.Errorf("complete: %w", &llm.APIError{StatusCode: 500, Body: "boom"})}, http.MethodPost, "/v1/sessions", map[string]string{}, http.StatusBadGateway},
		{"invalid json", &queueProvider{}, http.MethodPost, "/v1/sessions", "not an object", http.StatusBadRequest},
		{"locate without fragment", &queueProvider{}, http.MethodPost, "/v1/locate", map[string]string{"text": "abc"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t, tt.provider)
			w := do(t, server, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("status %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			resp := decode[map[string]any](t, w)
			if _, ok := resp["error"]; !ok {
				t.Errorf("expected error field: %v", resp)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", session.ErrNotFound), http.StatusNotFound},
		{catalog.ErrUnknownLanguage, http.StatusNotFound},
		{domain.ErrEmptySubmission, http.StatusBadRequest},
		{domain.ErrEmptyQuestion, http.StatusBadRequest},
		{tutor.ErrNoModel, http.StatusServiceUnavailable},
		{&llm.APIError{StatusCode: 429}, http.StatusBadGateway},
		{fmt.Errorf("generate exercise: %w", &openai.Error{StatusCode: 401}), http.StatusBadGateway},
		{errors.New("generate content: Error 503, Message: overloaded"), http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCreateSession_BackendRejectsKey(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": {"message": "invalid api key", "type": "auth_error"}}`)
	}))
	defer backend.Close()

	server := setupTestServer(t, nil)
	server.app.Registry.Register("openrouter", llm.NewOpenRouterProvider(llm.OpenRouterConfig{
		APIKey:  "sk-or-bad",
		BaseURL: backend.URL,
	}))
	if err := server.app.UseProvider("openrouter"); err != nil {
		t.Fatalf("UseProvider() error = %v", err)
	}

	w := do(t, server, http.MethodPost, "/v1/sessions", map[string]string{})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status %d, want 502 (%s)", w.Code, w.Body.String())
	}
	resp := decode[map[string]any](t, w)
	if resp["error"] != "model backend error" {
		t.Errorf("error = %v", resp["error"])
	}
}

func TestLocateEndpoint(t *testing.T) {
	server := setupTestServer(t, nil)

	text := "Ela  foi ao mercado."
	w := do(t, server, http.MethodPost, "/v1/locate", map[string]string{"text": text, "fragment": "ela foi ao"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	resp := decode[struct {
		Found bool   `json:"found"`
		Match string `json:"match"`
	}](t, w)
	if !resp.Found || resp.Match != "Ela  foi ao" {
		t.Errorf("locate = %+v", resp)
	}

	w = do(t, server, http.MethodPost, "/v1/locate", map[string]string{"text": text, "fragment": "supermercado"})
	if found := decode[map[string]any](t, w)["found"]; found != false {
		t.Errorf("found = %v, want false", found)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := setupTestServer(t, nil)

	w := do(t, server, http.MethodPut, "/v1/health", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status %d, want 405", w.Code)
	}
}
