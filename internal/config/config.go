// Package config loads llmgate settings from defaults, a YAML file, .env and
// the environment, in that order.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spetersoncode/llmgate/client"
	"github.com/spetersoncode/llmgate/discovery"
	"github.com/spetersoncode/llmgate/internal/retry"
)

// Chat backends of the web server.
const (
	BackendGateway = "gateway"
	BackendDirect  = "direct"
)

// Config is the complete llmgate configuration.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Agent     AgentConfig     `yaml:"agent"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Retry     retry.Config    `yaml:"retry"`
}

// ProvidersConfig holds direct provider credentials.
type ProvidersConfig struct {
	OpenAIKey    string `yaml:"openai_api_key"`
	AnthropicKey string `yaml:"anthropic_api_key"`
	GoogleKey    string `yaml:"google_api_key"`
	MistralKey   string `yaml:"mistral_api_key"`
	// OllamaURL is the OpenAI-compatible root, e.g. http://localhost:11434/v1.
	OllamaURL string `yaml:"ollama_base_url"`
}

// GatewayConfig locates the any-llm gateway.
type GatewayConfig struct {
	BaseURL   string `yaml:"base_url"`
	MasterKey string `yaml:"master_key"`
	// UserID is the end user that gateway usage is attributed to.
	UserID string `yaml:"user_id"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`
	ChatBackend     string        `yaml:"chat_backend"`
	AdminKey        string        `yaml:"admin_key"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig locates the files the server writes.
type StorageConfig struct {
	ModelsFile string `yaml:"models_file"`
	LedgerPath string `yaml:"ledger_path"`
}

// AgentConfig bounds the tool-calling round trip.
type AgentConfig struct {
	MaxRounds int           `yaml:"max_rounds"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DiscoveryConfig configures model discovery.
type DiscoveryConfig struct {
	OllamaTimeout time.Duration `yaml:"ollama_timeout"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:8000",
			UserID:  "user-123",
		},
		Server: ServerConfig{
			Port:            8080,
			LogLevel:        "info",
			ChatBackend:     BackendGateway,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			ModelsFile: "models.json",
			LedgerPath: "llmgate.db",
		},
		Agent: AgentConfig{
			MaxRounds: 1,
			Timeout:   2 * time.Minute,
		},
		Discovery: DiscoveryConfig{
			OllamaTimeout: 10 * time.Second,
		},
		Retry: retry.DefaultConfig(),
	}
}

// UseGateway reports whether chat goes through the gateway.
func (c *Config) UseGateway() bool {
	return c.Server.ChatBackend == BackendGateway
}

// SlogLevel maps LogLevel to a slog level. Unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ClientConfig returns the unified client configuration.
func (c *Config) ClientConfig() client.Config {
	rc := c.Retry
	return client.Config{
		APIKeys: client.APIKeys{
			OpenAI:    c.Providers.OpenAIKey,
			Anthropic: c.Providers.AnthropicKey,
			Google:    c.Providers.GoogleKey,
			Mistral:   c.Providers.MistralKey,
		},
		Endpoints: client.Endpoints{
			OllamaURL:  c.Providers.OllamaURL,
			GatewayURL: c.Gateway.BaseURL,
			GatewayKey: c.Gateway.MasterKey,
		},
		RetryConfig: &rc,
	}
}

// DiscoveryConfig returns the discovery service configuration.
func (c *Config) DiscoveryConfig() discovery.Config {
	return discovery.Config{
		OllamaURL:     c.Providers.OllamaURL,
		OllamaTimeout: c.Discovery.OllamaTimeout,
		AnthropicKey:  c.Providers.AnthropicKey,
		GoogleKey:     c.Providers.GoogleKey,
		OpenAIKey:     c.Providers.OpenAIKey,
		MistralKey:    c.Providers.MistralKey,
	}
}
