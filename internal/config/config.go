package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment overrides
const (
	EnvConfigDir = "LANGTUTOR_CONFIG_DIR"
	EnvLogLevel  = "LANGTUTOR_LOG_LEVEL"
	EnvProvider  = "LANGTUTOR_PROVIDER"
	EnvStorage   = "LANGTUTOR_STORAGE"
	EnvResilient = "LANGTUTOR_RESILIENT"
	EnvAttempts  = "LANGTUTOR_MAX_ATTEMPTS"
	EnvPort      = "LANGTUTOR_PORT"
)

// ApplyEnv overrides cfg with values from the environment
func ApplyEnv(cfg *LocalConfig) {
	cfg.LogLevel = strings.ToLower(getEnv(EnvLogLevel, cfg.LogLevel))
	cfg.LLM.DefaultProvider = getEnv(EnvProvider, cfg.LLM.DefaultProvider)
	cfg.Storage.Driver = getEnv(EnvStorage, cfg.Storage.Driver)
	cfg.Resilience.Enabled = getEnvBool(EnvResilient, cfg.Resilience.Enabled)
	cfg.Resilience.MaxAttempts = getEnvInt(EnvAttempts, cfg.Resilience.MaxAttempts)
	cfg.Server.Port = getEnvInt(EnvPort, cfg.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
