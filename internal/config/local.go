package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/langtutor/internal/pricing"
)

// AppName is the configuration directory name
const AppName = "language-tutor"

// LocalConfig holds the user configuration stored in config.yaml
type LocalConfig struct {
	LogLevel   string                   `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LLM        LLMConfig                `yaml:"llm"`
	Models     ModelsConfig             `yaml:"models"`
	Pricing    map[string]pricing.Price `yaml:"pricing,omitempty" validate:"omitempty,dive"`
	Storage    StorageConfig            `yaml:"storage"`
	Resilience ResilienceConfig         `yaml:"resilience"`
	Defaults   DefaultsConfig           `yaml:"defaults"`
	Server     ServerConfig             `yaml:"server"`
}

// LLMConfig holds LLM provider settings
type LLMConfig struct {
	DefaultProvider string                     `yaml:"default_provider" validate:"required"`
	Providers       map[string]*ProviderConfig `yaml:"providers" validate:"dive"`
}

// ProviderConfig holds settings for a single LLM provider.
// Model and CheckModel override the global models when set.
type ProviderConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model,omitempty"`
	CheckModel string `yaml:"check_model,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	APIKey     string `yaml:"-"` // Loaded from secrets.yaml
}

// ModelsConfig holds the model identifiers used by each operation
type ModelsConfig struct {
	Generate string    `yaml:"generate" validate:"required"`
	Check    string    `yaml:"check" validate:"required"`
	QA       []QAModel `yaml:"qa" validate:"dive"`
}

// QAModel is one entry of the question-answering model list
type QAModel struct {
	Name string `yaml:"name" validate:"required"`
	ID   string `yaml:"id" validate:"required"`
}

// StorageConfig selects the session store
type StorageConfig struct {
	Driver string `yaml:"driver" validate:"oneof=json sqlite"`
	// Path is relative to the config directory unless absolute
	Path string `yaml:"path"`
}

// ResilienceConfig holds the optional caller-side retry settings
type ResilienceConfig struct {
	Enabled        bool `yaml:"enabled"`
	Retry          bool `yaml:"retry"`
	MaxAttempts    int  `yaml:"max_attempts" validate:"gte=1,lte=10"`
	CircuitBreaker bool `yaml:"circuit_breaker"`
	MaxConcurrent  int  `yaml:"max_concurrent" validate:"gte=0"`
	RatePerSecond  int  `yaml:"rate_per_second" validate:"gte=0"`
}

// DefaultsConfig holds the initial selections
type DefaultsConfig struct {
	Language string `yaml:"language"`
	Level    string `yaml:"level" validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
}

// ServerConfig holds the HTTP API listen address
type ServerConfig struct {
	Bind string `yaml:"bind" validate:"required"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// SecretsConfig holds API keys loaded from secrets.yaml
type SecretsConfig struct {
	Providers map[string]SecretEntry `yaml:"providers"`
}

// SecretEntry is the secret material of one provider
type SecretEntry struct {
	APIKey string `yaml:"api_key"`
}

// Dir returns the configuration directory. LANGTUTOR_CONFIG_DIR wins,
// then $XDG_CONFIG_HOME/language-tutor, then ~/.config/language-tutor.
func Dir() (string, error) {
	if dir := getEnv(EnvConfigDir, ""); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("get home dir: %w", herr)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppName), nil
}

// EnsureDir creates the configuration directory and its subdirectories
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}

	subdirs := []string{
		"",
		"logs",
		"sessions",
		"exports",
		"packs",
	}

	for _, subdir := range subdirs {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		LogLevel: "info",
		LLM: LLMConfig{
			DefaultProvider: "openrouter",
			Providers: map[string]*ProviderConfig{
				"openrouter": {
					Enabled: true,
				},
				"openai": {
					Enabled:    false,
					Model:      "gpt-4o",
					CheckModel: "gpt-4o",
				},
				"claude": {
					Enabled:    false,
					Model:      "claude-sonnet-4-20250514",
					CheckModel: "claude-sonnet-4-20250514",
				},
				"gemini": {
					Enabled:    false,
					Model:      "gemini-2.5-flash",
					CheckModel: "gemini-2.5-flash",
				},
			},
		},
		Models: ModelsConfig{
			Generate: "openrouter/google/gemini-2.5-flash-preview",
			Check:    "openrouter/google/gemini-2.5-flash-preview:thinking",
			QA: []QAModel{
				{Name: "Gemini 2.5 Flash", ID: "openrouter/google/gemini-2.5-flash-preview"},
				{Name: "Claude 3 Opus", ID: "openrouter/anthropic/claude-3-opus"},
				{Name: "GPT-4o", ID: "openrouter/openai/gpt-4o"},
			},
		},
		Storage: StorageConfig{
			Driver: "json",
			Path:   "sessions",
		},
		Resilience: ResilienceConfig{
			Enabled:        false,
			Retry:          true,
			MaxAttempts:    3,
			CircuitBreaker: true,
			MaxConcurrent:  4,
			RatePerSecond:  2,
		},
		Defaults: DefaultsConfig{
			Language: "en",
			Level:    "B1",
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 7432,
		},
	}
}

// ModelsFor returns the generation and checking models for a provider
func (c *LocalConfig) ModelsFor(provider string) (generate, check string) {
	generate, check = c.Models.Generate, c.Models.Check
	if p, ok := c.LLM.Providers[provider]; ok {
		if p.Model != "" {
			generate = p.Model
		}
		if p.CheckModel != "" {
			check = p.CheckModel
		} else if p.Model != "" {
			check = p.Model
		}
	}
	return generate, check
}

// PriceTable returns the built-in prices with configured overrides applied
func (c *LocalConfig) PriceTable() pricing.Table {
	return pricing.DefaultTable().Merge(c.Pricing)
}

// StoragePath resolves the storage path against dir
func (c *LocalConfig) StoragePath(dir string) string {
	if c.Storage.Path == "" {
		return filepath.Join(dir, "sessions")
	}
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(dir, c.Storage.Path)
}

// Validate checks the configuration against its struct tags
func Validate(cfg *LocalConfig) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadLocalConfig loads configuration from the configuration directory
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(dir)
}

// LoadLocalConfigFrom loads config.yaml and secrets.yaml from dir and
// applies environment overrides. A missing config.yaml yields defaults.
func LoadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	configPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Load secrets (API keys)
	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	ApplyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSecrets loads API keys from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	secrets, err := readSecrets(dir)
	if err != nil {
		return err
	}

	// Apply secrets to config
	for name, secret := range secrets.Providers {
		if provider, ok := cfg.LLM.Providers[name]; ok {
			provider.APIKey = secret.APIKey
		}
	}
	return nil
}

func readSecrets(dir string) (*SecretsConfig, error) {
	secretsPath := filepath.Join(dir, "secrets.yaml")

	secrets := &SecretsConfig{Providers: make(map[string]SecretEntry)}
	data, err := os.ReadFile(secretsPath)
	if os.IsNotExist(err) {
		return secrets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}

	if err := yaml.Unmarshal(data, secrets); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	if secrets.Providers == nil {
		secrets.Providers = make(map[string]SecretEntry)
	}
	return secrets, nil
}

// SaveLocalConfig saves configuration to config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureDir()
	if err != nil {
		return err
	}
	return SaveLocalConfigTo(dir, cfg)
}

// SaveLocalConfigTo writes cfg to dir/config.yaml. API keys are never written here.
func SaveLocalConfigTo(dir string, cfg *LocalConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveSecrets merges API keys into secrets.yaml. An empty key removes the entry.
func SaveSecrets(secrets map[string]string) error {
	dir, err := EnsureDir()
	if err != nil {
		return err
	}
	return SaveSecretsTo(dir, secrets)
}

// SaveSecretsTo merges API keys into dir/secrets.yaml
func SaveSecretsTo(dir string, secrets map[string]string) error {
	existing, err := readSecrets(dir)
	if err != nil {
		return err
	}

	for name, key := range secrets {
		if key == "" {
			delete(existing.Providers, name)
			continue
		}
		existing.Providers[name] = SecretEntry{APIKey: key}
	}

	data, err := yaml.Marshal(existing)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}
