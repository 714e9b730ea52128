package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no config-related env set.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"LLMGATE_CONFIG", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY",
		"MISTRAL_API_KEY", "OLLAMA_BASE_URL", "GATEWAY_BASE_URL", "GATEWAY_MASTER_KEY", "GATEWAY_USER_ID",
		"LLMGATE_PORT", "LLMGATE_LOG_LEVEL", "LLMGATE_CHAT_BACKEND", "LLMGATE_ADMIN_KEY",
		"LLMGATE_MODELS_FILE", "LLMGATE_LEDGER", "LLMGATE_RETRY_ATTEMPTS", "LLMGATE_RETRY_DISABLED",
		"LLMGATE_MAX_TOOL_ROUNDS", "LLMGATE_AGENT_TIMEOUT", "LLMGATE_SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Gateway.BaseURL)
	assert.Equal(t, "user-123", cfg.Gateway.UserID)
	assert.Empty(t, cfg.Gateway.MasterKey)
	assert.True(t, cfg.UseGateway())
	assert.Equal(t, "models.json", cfg.Storage.ModelsFile)
	assert.Equal(t, "llmgate.db", cfg.Storage.LedgerPath)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1, cfg.Agent.MaxRounds)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFromYAML(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  anthropic_api_key: sk-ant
gateway:
  base_url: http://gateway:8000
  user_id: alice
server:
  port: 9090
  chat_backend: direct
  log_level: debug
retry:
  max_attempts: 5
  initial_delay: 250ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-ant", cfg.Providers.AnthropicKey)
	assert.Equal(t, "http://gateway:8000", cfg.Gateway.BaseURL)
	assert.Equal(t, "alice", cfg.Gateway.UserID)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.UseGateway())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	// untouched fields keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, "models.json", cfg.Storage.ModelsFile)
}

func TestDiscoverDefaultFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("llmgate.yaml", []byte("server:\n  port: 7070\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("LLMGATE_PORT", "9191")
	t.Setenv("GATEWAY_MASTER_KEY", "master")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("LLMGATE_RETRY_ATTEMPTS", "7")
	t.Setenv("LLMGATE_AGENT_TIMEOUT", "45s")
	t.Setenv("LLMGATE_LEDGER", ":memory:")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "master", cfg.Gateway.MasterKey)
	assert.Equal(t, "gem", cfg.Providers.GoogleKey)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, ":memory:", cfg.Storage.LedgerPath)

	t.Run("google key wins over gemini key", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "goog")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "goog", cfg.Providers.GoogleKey)
	})

	t.Run("malformed numbers are ignored", func(t *testing.T) {
		t.Setenv("LLMGATE_PORT", "not-a-port")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
	})

	t.Run("retry disabled", func(t *testing.T) {
		t.Setenv("LLMGATE_RETRY_DISABLED", "true")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	})
}

func TestDotEnv(t *testing.T) {
	isolate(t)
	// godotenv never overrides variables that are already set, even to ""
	os.Unsetenv("MISTRAL_API_KEY")
	t.Cleanup(func() { os.Unsetenv("MISTRAL_API_KEY") })
	require.NoError(t, os.WriteFile(".env", []byte("MISTRAL_API_KEY=from-dotenv\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Providers.MistralKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad backend", func(c *Config) { c.Server.ChatBackend = "proxy" }, "server.chat_backend"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }, "server.log_level"},
		{"no user", func(c *Config) { c.Gateway.UserID = "" }, "gateway.user_id"},
		{"no models file", func(c *Config) { c.Storage.ModelsFile = "" }, "storage.models_file"},
		{"no attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("missing master key is fine", func(t *testing.T) {
		cfg := Defaults()
		assert.NoError(t, cfg.Validate())
	})
}

func TestClientConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.AnthropicKey = "sk-ant"
	cfg.Gateway.MasterKey = "master"

	cc := cfg.ClientConfig()
	assert.Equal(t, "sk-ant", cc.APIKeys.Anthropic)
	assert.Equal(t, "http://localhost:8000", cc.Endpoints.GatewayURL)
	assert.Equal(t, "master", cc.Endpoints.GatewayKey)
	require.NotNil(t, cc.RetryConfig)
	assert.Equal(t, 3, cc.RetryConfig.MaxAttempts)

	dc := cfg.DiscoveryConfig()
	assert.Equal(t, "sk-ant", dc.AnthropicKey)
	assert.Equal(t, 10*time.Second, dc.OllamaTimeout)
}
