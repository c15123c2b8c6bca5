package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/felixgeelhaar/langtutor/internal/app"
	"github.com/felixgeelhaar/langtutor/internal/config"
)

// cmdInit creates the configuration directory and asks for an API key
func cmdInit() error {
	fmt.Println("Language Tutor - First-Time Setup")
	fmt.Println("=================================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Creating configuration directory... ")
	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveLocalConfigTo(dir, config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println()
	fmt.Println("Model Provider Setup")
	fmt.Println("--------------------")
	fmt.Printf("Supported providers: %s\n", strings.Join(app.ProviderNames, ", "))
	fmt.Println()

	name := cfg.LLM.DefaultProvider
	if p, ok := cfg.LLM.Providers[name]; ok && p.APIKey != "" {
		fmt.Printf("%s API key: already configured ✓\n", name)
	} else if ok {
		fmt.Printf("Enter %s API key (or press Enter to skip): ", name)
		key, _ := reader.ReadString('\n')
		key = strings.TrimSpace(key)
		if key != "" {
			if err := config.SaveSecretsTo(dir, map[string]string{name: key}); err != nil {
				fmt.Printf("  ⚠ Failed to save: %v\n", err)
			} else {
				fmt.Println("  ✓ Saved")
			}
		}
	}

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. langtutor exercise list        # See languages and exercise types")
	fmt.Println("  2. langtutor generate -lang en    # Get an exercise")
	fmt.Println("  3. langtutor check -file my.txt   # Check your writing")
	fmt.Println()
	fmt.Printf("Add your own exercise packs as YAML files in %s\n", filepath.Join(dir, "packs"))

	return nil
}

// cmdConfig shows current configuration
func cmdConfig() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	printConfig(os.Stdout, dir, cfg)

	return nil
}

// printConfig writes a readable summary of cfg
func printConfig(w io.Writer, dir string, cfg *config.LocalConfig) {
	fmt.Fprintln(w, "Language Tutor Configuration")
	fmt.Fprintf(w, "  log_level: %s\n", cfg.LogLevel)

	fmt.Fprintln(w, "\nLLM:")
	fmt.Fprintf(w, "  default_provider: %s\n", cfg.LLM.DefaultProvider)
	for _, name := range sortedProviders(cfg) {
		provider := cfg.LLM.Providers[name]
		if provider.Enabled {
			fmt.Fprintf(w, "  %s: enabled=%t model=%s key=%s\n", name, provider.Enabled, provider.Model, keyStatus(provider))
		}
	}

	fmt.Fprintln(w, "\nModels:")
	fmt.Fprintf(w, "  generate: %s\n", cfg.Models.Generate)
	fmt.Fprintf(w, "  check:    %s\n", cfg.Models.Check)
	for _, m := range cfg.Models.QA {
		fmt.Fprintf(w, "  qa:       %s (%s)\n", m.Name, m.ID)
	}

	fmt.Fprintln(w, "\nStorage:")
	fmt.Fprintf(w, "  driver: %s\n", cfg.Storage.Driver)
	fmt.Fprintf(w, "  path:   %s\n", cfg.StoragePath(dir))

	fmt.Fprintln(w, "\nResilience:")
	fmt.Fprintf(w, "  enabled: %t\n", cfg.Resilience.Enabled)
	if cfg.Resilience.Enabled {
		fmt.Fprintf(w, "  retry: %t (max %d attempts)\n", cfg.Resilience.Retry, cfg.Resilience.MaxAttempts)
		fmt.Fprintf(w, "  circuit_breaker: %t\n", cfg.Resilience.CircuitBreaker)
		fmt.Fprintf(w, "  max_concurrent: %d\n", cfg.Resilience.MaxConcurrent)
		fmt.Fprintf(w, "  rate_per_second: %d\n", cfg.Resilience.RatePerSecond)
	}

	fmt.Fprintln(w, "\nDefaults:")
	fmt.Fprintf(w, "  language: %s\n", cfg.Defaults.Language)
	fmt.Fprintf(w, "  level:    %s\n", cfg.Defaults.Level)

	fmt.Fprintf(w, "\nConfig path: %s\n", filepath.Join(dir, "config.yaml"))
}

// cmdProvider manages model providers
func cmdProvider(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Provider management commands:

  langtutor provider list              List configured providers
  langtutor provider set-key <name>    Set API key for a provider
  langtutor provider use <name>        Enable a provider and make it the default`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdProviderList()
	case "set-key":
		if len(args) < 2 {
			return fmt.Errorf("provider name required")
		}
		return cmdProviderSetKey(args[1])
	case "use":
		if len(args) < 2 {
			return fmt.Errorf("provider name required")
		}
		return cmdProviderUse(args[1])
	default:
		return fmt.Errorf("unknown provider command: %s", args[0])
	}
}

func cmdProviderList() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Configured Model Providers:")
	for _, name := range sortedProviders(cfg) {
		provider := cfg.LLM.Providers[name]
		status := "disabled"
		if provider.Enabled {
			if provider.APIKey != "" {
				status = "ready"
			} else {
				status = "needs API key"
			}
		}

		isDefault := ""
		if name == cfg.LLM.DefaultProvider {
			isDefault = " (default)"
		}

		generate, check := cfg.ModelsFor(name)
		fmt.Printf("  %s%s\n", name, isDefault)
		fmt.Printf("    status: %s\n", status)
		fmt.Printf("    models: generate=%s check=%s\n", generate, check)
		if provider.BaseURL != "" {
			fmt.Printf("    url:    %s\n", provider.BaseURL)
		}
		fmt.Println()
	}

	return nil
}

func cmdProviderSetKey(provider string) error {
	if !slices.Contains(app.ProviderNames, provider) {
		return fmt.Errorf("unknown provider: %s (valid: %s)", provider, strings.Join(app.ProviderNames, ", "))
	}

	fmt.Printf("Enter %s API key: ", provider)
	reader := bufio.NewReader(os.Stdin)
	key, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	key = strings.TrimSpace(key)

	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if err := config.SaveSecrets(map[string]string{provider: key}); err != nil {
		return fmt.Errorf("save secrets: %w", err)
	}

	fmt.Printf("✓ API key saved for %s\n", provider)
	return nil
}

func cmdProviderUse(provider string) error {
	if !slices.Contains(app.ProviderNames, provider) && provider != "auto" {
		return fmt.Errorf("unknown provider: %s (valid: auto, %s)", provider, strings.Join(app.ProviderNames, ", "))
	}

	dir, err := config.EnsureDir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if p, ok := cfg.LLM.Providers[provider]; ok {
		p.Enabled = true
	} else if provider != "auto" {
		cfg.LLM.Providers[provider] = &config.ProviderConfig{Enabled: true}
	}
	cfg.LLM.DefaultProvider = provider

	if err := config.SaveLocalConfigTo(dir, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Printf("✓ Default provider set to %s\n", provider)
	return nil
}

func sortedProviders(cfg *config.LocalConfig) []string {
	names := make([]string, 0, len(cfg.LLM.Providers))
	for name := range cfg.LLM.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func keyStatus(p *config.ProviderConfig) string {
	if p.APIKey != "" {
		return "✓"
	}
	return "✗"
}
