package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/spetersoncode/llmgate/catalog"
	"golang.org/x/sync/errgroup"
)

// ModelInfo is a model reported by a provider.
type ModelInfo struct {
	Model    string
	Provider string
	Display  string
	Metadata map[string]any
}

// ToEntry converts the model into a catalog entry.
func (m ModelInfo) ToEntry() catalog.Entry {
	return catalog.Entry{
		Provider: m.Provider,
		Model:    m.Model,
		Display:  m.Display,
		Metadata: m.Metadata,
	}
}

// MarshalJSON renders the model with its metadata flattened into the object.
func (m ModelInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToEntry())
}

// Entries converts models into catalog entries.
func Entries(models []ModelInfo) []catalog.Entry {
	out := make([]catalog.Entry, len(models))
	for i, m := range models {
		out[i] = m.ToEntry()
	}
	return out
}

// Discoverer lists the models of one provider.
type Discoverer interface {
	Discover(ctx context.Context) ([]ModelInfo, error)
}

// DiscovererFunc adapts a function to Discoverer.
type DiscovererFunc func(ctx context.Context) ([]ModelInfo, error)

func (f DiscovererFunc) Discover(ctx context.Context) ([]ModelInfo, error) { return f(ctx) }

// Error is a discovery failure with a user-facing message.
type Error struct {
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// ErrUnsupportedProvider is returned by Discover for unregistered providers.
type ErrUnsupportedProvider struct {
	Provider  string
	Supported []string
}

func (e *ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("Unsupported provider: %s. Supported: [%s]", e.Provider, strings.Join(e.Supported, ", "))
}

// Result is the outcome of discovering one provider.
type Result struct {
	Models []ModelInfo `json:"models"`
	Err    error       `json:"-"`
}

// Service routes discovery requests to registered providers.
type Service struct {
	mu        sync.RWMutex
	providers map[string]Discoverer
	logger    *slog.Logger
}

// NewService creates an empty Service. A nil logger uses slog.Default().
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		providers: make(map[string]Discoverer),
		logger:    logger,
	}
}

// Register adds or replaces the discoverer for a provider.
func (s *Service) Register(provider string, d Discoverer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[provider] = d
}

// SupportedProviders returns the registered provider names, sorted.
func (s *Service) SupportedProviders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Discover lists the models of one provider.
func (s *Service) Discover(ctx context.Context, provider string) ([]ModelInfo, error) {
	s.mu.RLock()
	d, ok := s.providers[provider]
	s.mu.RUnlock()
	if !ok {
		return nil, &ErrUnsupportedProvider{Provider: provider, Supported: s.SupportedProviders()}
	}

	models, err := d.Discover(ctx)
	if err != nil {
		s.logger.Error("model discovery failed", "provider", provider, "error", err)
		return nil, err
	}
	s.logger.Info("discovered models", "provider", provider, "count", len(models))
	return models, nil
}

// DiscoverAll queries every provider concurrently. A failing provider is
// reported in its Result and does not affect the others.
func (s *Service) DiscoverAll(ctx context.Context) map[string]Result {
	names := s.SupportedProviders()
	results := make([]Result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			models, err := s.Discover(gctx, name)
			results[i] = Result{Models: models, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}
