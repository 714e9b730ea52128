package llmgate

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies an AI provider.
type Provider string

// String returns the provider identifier.
func (p Provider) String() string { return string(p) }

// Supported providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderMistral   Provider = "mistral"
	ProviderOllama    Provider = "ollama"
	// ProviderGateway routes requests through an any-llm compatible gateway proxy.
	ProviderGateway Provider = "gateway"
)

// Providers returns every supported provider in a stable order.
func Providers() []Provider {
	return []Provider{
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderGemini,
		ProviderMistral,
		ProviderOllama,
		ProviderGateway,
	}
}

// ErrEmptyModel is returned when a model reference has no model name.
var ErrEmptyModel = errors.New("empty model name")

// ErrUnknownProvider is returned for provider names outside Providers().
type ErrUnknownProvider struct {
	Name string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown provider: %q", e.Name)
}

// ParseProvider normalizes a provider name. "google" is accepted for Gemini.
func ParseProvider(name string) (Provider, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "google" {
		return ProviderGemini, nil
	}
	for _, p := range Providers() {
		if string(p) == n {
			return p, nil
		}
	}
	return "", &ErrUnknownProvider{Name: name}
}

// ModelRef names a model together with the provider that serves it.
type ModelRef struct {
	Provider Provider
	Name     string
}

// String renders the reference in gateway "provider:model" form.
func (m ModelRef) String() string {
	return string(m.Provider) + ":" + m.Name
}

// ParseModel resolves a model reference.
//
// Accepted forms are "provider:model", "provider/model" and a bare model name whose
// provider is inferred from its prefix. Only the first separator splits, so Ollama
// tags like "ollama:llama3.2:3b" keep their own colon.
func ParseModel(s string) (ModelRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModelRef{}, ErrEmptyModel
	}

	if i := strings.IndexAny(s, ":/"); i > 0 {
		if p, err := ParseProvider(s[:i]); err == nil {
			name := s[i+1:]
			if name == "" {
				return ModelRef{}, ErrEmptyModel
			}
			return ModelRef{Provider: p, Name: name}, nil
		}
	}

	p, ok := inferProvider(s)
	if !ok {
		return ModelRef{}, fmt.Errorf("cannot infer provider for model %q: use provider:model", s)
	}
	return ModelRef{Provider: p, Name: s}, nil
}

var modelPrefixes = []struct {
	prefix   string
	provider Provider
}{
	{"gpt-", ProviderOpenAI},
	{"chatgpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"claude", ProviderAnthropic},
	{"gemini", ProviderGemini},
	{"mistral", ProviderMistral},
	{"open-mistral", ProviderMistral},
	{"codestral", ProviderMistral},
	{"ministral", ProviderMistral},
	{"pixtral", ProviderMistral},
}

func inferProvider(model string) (Provider, bool) {
	lower := strings.ToLower(model)
	for _, mp := range modelPrefixes {
		if strings.HasPrefix(lower, mp.prefix) {
			return mp.provider, true
		}
	}
	return "", false
}
