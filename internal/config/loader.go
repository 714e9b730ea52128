package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spetersoncode/llmgate/client"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources:
//  1. Built-in defaults
//  2. YAML file (explicit path, LLMGATE_CONFIG, ./llmgate.yaml)
//  3. .env in the working directory, if present
//  4. Environment variables
//  5. Validation
//
// A missing gateway master key is not an error here. Requests that need it
// fail on their own so the rest of the app stays usable.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	_ = godotenv.Load() // .env is optional

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("LLMGATE_CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("llmgate.yaml"); err == nil {
		return "llmgate.yaml"
	}
	return ""
}

// loadYAMLFile parses path into cfg. Fields the file omits keep their values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	p := &cfg.Providers
	p.OpenAIKey = getEnvOrDefault("OPENAI_API_KEY", p.OpenAIKey)
	p.AnthropicKey = getEnvOrDefault("ANTHROPIC_API_KEY", p.AnthropicKey)
	p.GoogleKey = getEnvOrDefault("GEMINI_API_KEY", p.GoogleKey)
	p.GoogleKey = getEnvOrDefault("GOOGLE_API_KEY", p.GoogleKey)
	p.MistralKey = getEnvOrDefault("MISTRAL_API_KEY", p.MistralKey)
	p.OllamaURL = getEnvOrDefault("OLLAMA_BASE_URL", p.OllamaURL)

	g := &cfg.Gateway
	g.BaseURL = getEnvOrDefault("GATEWAY_BASE_URL", g.BaseURL)
	g.MasterKey = getEnvOrDefault("GATEWAY_MASTER_KEY", g.MasterKey)
	g.UserID = getEnvOrDefault("GATEWAY_USER_ID", g.UserID)

	s := &cfg.Server
	s.Port = getEnvIntOrDefault("LLMGATE_PORT", s.Port)
	s.LogLevel = getEnvOrDefault("LLMGATE_LOG_LEVEL", s.LogLevel)
	s.ChatBackend = getEnvOrDefault("LLMGATE_CHAT_BACKEND", s.ChatBackend)
	s.AdminKey = getEnvOrDefault("LLMGATE_ADMIN_KEY", s.AdminKey)
	s.ShutdownTimeout = getEnvDurationOrDefault("LLMGATE_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)

	cfg.Storage.ModelsFile = getEnvOrDefault("LLMGATE_MODELS_FILE", cfg.Storage.ModelsFile)
	cfg.Storage.LedgerPath = getEnvOrDefault("LLMGATE_LEDGER", cfg.Storage.LedgerPath)

	cfg.Agent.MaxRounds = getEnvIntOrDefault("LLMGATE_MAX_TOOL_ROUNDS", cfg.Agent.MaxRounds)
	cfg.Agent.Timeout = getEnvDurationOrDefault("LLMGATE_AGENT_TIMEOUT", cfg.Agent.Timeout)

	cfg.Retry.MaxAttempts = getEnvIntOrDefault("LLMGATE_RETRY_ATTEMPTS", cfg.Retry.MaxAttempts)
	if getEnvBoolOrDefault("LLMGATE_RETRY_DISABLED", false) {
		cfg.Retry = client.DisabledRetryConfig()
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
