package discovery

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spetersoncode/llmgate/internal/provider/anthropic"
	"github.com/spetersoncode/llmgate/internal/provider/google"
	"github.com/spetersoncode/llmgate/internal/provider/openai"
)

type anthropicLister interface {
	ListModels(ctx context.Context) ([]anthropic.RemoteModel, error)
}

type geminiLister interface {
	ListModels(ctx context.Context) ([]google.RemoteModel, error)
}

type openaiLister interface {
	ListModels(ctx context.Context) ([]openai.RemoteModel, error)
}

// Anthropic lists models through the Anthropic Models API.
func Anthropic(l anthropicLister) Discoverer {
	return DiscovererFunc(func(ctx context.Context) ([]ModelInfo, error) {
		remote, err := l.ListModels(ctx)
		if err != nil {
			return nil, vendorError("anthropic", err)
		}
		models := make([]ModelInfo, 0, len(remote))
		for _, m := range remote {
			meta := map[string]any{"tools_support": true}
			if !m.CreatedAt.IsZero() {
				meta["created"] = m.CreatedAt.Format(time.RFC3339)
			}
			models = append(models, ModelInfo{
				Model:    m.ID,
				Provider: "anthropic",
				Display:  displayOr(m.DisplayName, m.ID),
				Metadata: meta,
			})
		}
		return models, nil
	})
}

// Gemini lists models through the Gemini Models API. Only models that can
// generate content are reported, so embedding models are skipped.
func Gemini(l geminiLister) Discoverer {
	return DiscovererFunc(func(ctx context.Context) ([]ModelInfo, error) {
		remote, err := l.ListModels(ctx)
		if err != nil {
			return nil, vendorError("gemini", err)
		}
		models := make([]ModelInfo, 0, len(remote))
		for _, m := range remote {
			if len(m.Actions) > 0 && !slices.Contains(m.Actions, "generateContent") {
				continue
			}
			meta := map[string]any{
				"tools_support":      true,
				"input_token_limit":  m.InputTokenLimit,
				"output_token_limit": m.OutputTokenLimit,
			}
			if m.Description != "" {
				meta["description"] = m.Description
			}
			models = append(models, ModelInfo{
				Model:    m.ID,
				Provider: "gemini",
				Display:  displayOr(m.DisplayName, m.ID),
				Metadata: meta,
			})
		}
		return models, nil
	})
}

// OpenAICompatible lists models from an OpenAI-style /models endpoint under
// the given provider name. It serves both OpenAI and Mistral.
func OpenAICompatible(provider string, l openaiLister) Discoverer {
	return DiscovererFunc(func(ctx context.Context) ([]ModelInfo, error) {
		remote, err := l.ListModels(ctx)
		if err != nil {
			return nil, vendorError(provider, err)
		}
		models := make([]ModelInfo, 0, len(remote))
		for _, m := range remote {
			meta := map[string]any{}
			if m.OwnedBy != "" {
				meta["owned_by"] = m.OwnedBy
			}
			if !m.Created.IsZero() {
				meta["created"] = m.Created.Format(time.RFC3339)
			}
			models = append(models, ModelInfo{
				Model:    m.ID,
				Provider: provider,
				Display:  m.ID,
				Metadata: meta,
			})
		}
		return models, nil
	})
}

func displayOr(display, id string) string {
	if display != "" {
		return display
	}
	return id
}

func vendorError(provider string, err error) error {
	return &Error{
		Provider: provider,
		Message:  fmt.Sprintf("Failed to discover %s models: %v", provider, err),
		Err:      err,
	}
}
