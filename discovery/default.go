package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/spetersoncode/llmgate/internal/provider/anthropic"
	"github.com/spetersoncode/llmgate/internal/provider/google"
	"github.com/spetersoncode/llmgate/internal/provider/openai"
)

// Config selects the providers of a default Service.
type Config struct {
	OllamaURL     string
	OllamaTimeout time.Duration

	AnthropicKey string
	GoogleKey    string
	OpenAIKey    string
	MistralKey   string
}

// NewDefaultService registers Ollama plus every hosted provider with a key.
func NewDefaultService(ctx context.Context, cfg Config, logger *slog.Logger) *Service {
	s := NewService(logger)
	s.Register("ollama", NewOllama(cfg.OllamaURL, cfg.OllamaTimeout))

	if cfg.AnthropicKey != "" {
		s.Register("anthropic", Anthropic(anthropic.New(cfg.AnthropicKey)))
	}
	if cfg.OpenAIKey != "" {
		s.Register("openai", OpenAICompatible("openai", openai.New(cfg.OpenAIKey)))
	}
	if cfg.MistralKey != "" {
		s.Register("mistral", OpenAICompatible("mistral", openai.NewMistral(cfg.MistralKey)))
	}
	if cfg.GoogleKey != "" {
		gc, err := google.New(ctx, cfg.GoogleKey)
		if err != nil {
			s.logger.Warn("gemini discovery disabled", "error", err)
		} else {
			s.Register("gemini", Gemini(gc))
		}
	}
	return s
}
