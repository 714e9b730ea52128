package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/internal/provider/anthropic"
	"github.com/spetersoncode/llmgate/internal/provider/google"
	"github.com/spetersoncode/llmgate/internal/provider/openai"
	"github.com/spetersoncode/llmgate/internal/retry"
)

// APIKeys holds API keys for the hosted providers.
// Only configure keys for providers you intend to use.
type APIKeys struct {
	OpenAI    string
	Anthropic string
	Google    string
	Mistral   string
}

// Endpoints holds addresses for self-hosted backends.
type Endpoints struct {
	// OllamaURL is the Ollama OpenAI-compatible root, e.g. http://localhost:11434/v1.
	OllamaURL string
	// GatewayURL is the gateway root without the /v1 suffix.
	GatewayURL string
	// GatewayKey is the gateway master key.
	GatewayKey string
}

// Config holds configuration for creating a unified client.
type Config struct {
	APIKeys   APIKeys
	Endpoints Endpoints

	// DefaultModel is used when a request carries no WithModel option.
	DefaultModel string

	// RetryConfig configures retries of transient errors. Nil means retry.DefaultConfig().
	RetryConfig *retry.Config

	// Events receives client operation events. Sends never block.
	Events chan<- Event
}

// ErrMissingAPIKey is returned when a model is used but its provider has no key.
type ErrMissingAPIKey struct {
	Provider string
	Model    string
}

func (e *ErrMissingAPIKey) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("no API key configured for %s (required by model %q)", e.Provider, e.Model)
	}
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// ErrNoModel is returned when no model is specified and no default is configured.
type ErrNoModel struct {
	Operation string
}

func (e *ErrNoModel) Error() string {
	return fmt.Sprintf("no model specified for %s: set client.Config DefaultModel or use llmgate.WithModel()", e.Operation)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// ViaGateway routes every model through the gateway as provider:model.
func ViaGateway() ClientOption {
	return func(c *Client) {
		c.viaGateway = true
	}
}

// WithDefaultChatOptions sets default options for all chat requests.
// Per-request options override these defaults.
func WithDefaultChatOptions(opts ...ai.Option) ClientOption {
	return func(c *Client) {
		c.defaultChatOpts = append(c.defaultChatOpts, opts...)
	}
}

// WithProvider installs a ready-made backend for p, bypassing lazy construction.
func WithProvider(p ai.Provider, cp ai.ChatProvider) ClientOption {
	return func(c *Client) {
		c.providers[p] = cp
	}
}

// Client is a unified interface to every configured chat provider.
// Provider clients are lazily initialized on first use.
type Client struct {
	apiKeys         APIKeys
	endpoints       Endpoints
	defaultModel    string
	retryConfig     retry.Config
	events          chan<- Event
	defaultChatOpts []ai.Option
	viaGateway      bool

	mu        sync.RWMutex
	providers map[ai.Provider]ai.ChatProvider
}

// New creates a unified client with the given configuration.
func New(cfg Config, opts ...ClientOption) *Client {
	retryConfig := retry.DefaultConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}

	c := &Client{
		apiKeys:      cfg.APIKeys,
		endpoints:    cfg.Endpoints,
		defaultModel: cfg.DefaultModel,
		retryConfig:  retryConfig,
		events:       cfg.Events,
		providers:    make(map[ai.Provider]ai.ChatProvider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// provider returns the backend for p, constructing it on first use.
func (c *Client) provider(ctx context.Context, p ai.Provider) (ai.ChatProvider, error) {
	c.mu.RLock()
	cp, ok := c.providers[p]
	c.mu.RUnlock()
	if ok {
		return cp, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cp, ok := c.providers[p]; ok {
		return cp, nil
	}
	cp, err := c.build(ctx, p)
	if err != nil {
		return nil, err
	}
	c.providers[p] = cp
	return cp, nil
}

func (c *Client) build(ctx context.Context, p ai.Provider) (ai.ChatProvider, error) {
	missing := func() error { return &ErrMissingAPIKey{Provider: string(p)} }

	switch p {
	case ai.ProviderOpenAI:
		if c.apiKeys.OpenAI == "" {
			return nil, missing()
		}
		return openai.New(c.apiKeys.OpenAI), nil
	case ai.ProviderAnthropic:
		if c.apiKeys.Anthropic == "" {
			return nil, missing()
		}
		return anthropic.New(c.apiKeys.Anthropic), nil
	case ai.ProviderGemini:
		if c.apiKeys.Google == "" {
			return nil, missing()
		}
		gc, err := google.New(ctx, c.apiKeys.Google)
		if err != nil {
			return nil, fmt.Errorf("initialize gemini client: %w", err)
		}
		return gc, nil
	case ai.ProviderMistral:
		if c.apiKeys.Mistral == "" {
			return nil, missing()
		}
		return openai.NewMistral(c.apiKeys.Mistral), nil
	case ai.ProviderOllama:
		return openai.NewOllama(c.endpoints.OllamaURL), nil
	case ai.ProviderGateway:
		if c.endpoints.GatewayKey == "" {
			return nil, missing()
		}
		return openai.NewGateway(GatewayAPIBase(c.endpoints.GatewayURL), c.endpoints.GatewayKey), nil
	default:
		return nil, &ai.ErrUnknownProvider{Name: string(p)}
	}
}

// GatewayAPIBase returns the gateway's OpenAI-compatible root for a base URL.
func GatewayAPIBase(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/v1"
}

// route resolves the model option into a backend and the model name that backend expects.
func (c *Client) route(ctx context.Context, operation string, options *ai.Options) (ai.ChatProvider, ai.Provider, string, error) {
	model := options.Model
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return nil, "", "", &ErrNoModel{Operation: operation}
	}

	ref, err := ai.ParseModel(model)
	if err != nil {
		return nil, "", "", err
	}

	target, name := ref.Provider, ref.Name
	if c.viaGateway && ref.Provider != ai.ProviderGateway {
		target, name = ai.ProviderGateway, ref.String()
	}

	cp, err := c.provider(ctx, target)
	if err != nil {
		var mk *ErrMissingAPIKey
		if errors.As(err, &mk) {
			mk.Model = model
		}
		return nil, "", "", err
	}
	return cp, target, name, nil
}

// Chat sends a conversation and returns a complete response.
// Transient errors are retried according to the client's retry configuration.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	const op = "chat"
	opts = append(append([]ai.Option{}, c.defaultChatOpts...), opts...)

	cp, provider, name, err := c.route(ctx, op, ai.ApplyOptions(opts...))
	if err != nil {
		return nil, err
	}
	opts = append(opts, ai.WithModel(name))

	start := time.Now()
	emit(c.events, Event{Type: EventRequestStart, Operation: op, Provider: provider, Model: name})

	retryEvents, done := c.retryEvents(op, provider)
	resp, err := retry.DoWithEvents(ctx, c.retryConfig, retryEvents, func() (*ai.Response, error) {
		return cp.Chat(ctx, messages, opts...)
	})
	done()

	if err != nil {
		emit(c.events, Event{Type: EventRequestError, Operation: op, Provider: provider, Model: name, Duration: time.Since(start), Error: err})
		return nil, err
	}

	emit(c.events, Event{
		Type:      EventRequestComplete,
		Operation: op,
		Provider:  provider,
		Model:     name,
		Duration:  time.Since(start),
		Usage:     &resp.Usage,
	})
	return resp, nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
// Only establishing the stream is retried. Completion is reported once the
// stream's final event has passed through.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	const op = "chat_stream"
	opts = append(append([]ai.Option{}, c.defaultChatOpts...), opts...)

	cp, provider, name, err := c.route(ctx, op, ai.ApplyOptions(opts...))
	if err != nil {
		return nil, err
	}
	opts = append(opts, ai.WithModel(name))

	start := time.Now()
	emit(c.events, Event{Type: EventRequestStart, Operation: op, Provider: provider, Model: name})

	retryEvents, done := c.retryEvents(op, provider)
	upstream, err := retry.DoStreamWithEvents(ctx, c.retryConfig, retryEvents, func() (<-chan ai.StreamEvent, error) {
		return cp.ChatStream(ctx, messages, opts...)
	})
	done()

	if err != nil {
		emit(c.events, Event{Type: EventRequestError, Operation: op, Provider: provider, Model: name, Duration: time.Since(start), Error: err})
		return nil, err
	}

	out := make(chan ai.StreamEvent)
	go func() {
		defer close(out)
		for ev := range upstream {
			switch {
			case ev.Err != nil:
				emit(c.events, Event{Type: EventRequestError, Operation: op, Provider: provider, Model: name, Duration: time.Since(start), Error: ev.Err})
			case ev.Done && ev.Response != nil:
				usage := ev.Response.Usage
				emit(c.events, Event{Type: EventRequestComplete, Operation: op, Provider: provider, Model: name, Duration: time.Since(start), Usage: &usage})
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				// let the provider goroutine finish
				for range upstream {
				}
				return
			}
		}
	}()
	return out, nil
}

// KeyState reports whether a hosted provider has credentials.
type KeyState struct {
	Provider   ai.Provider
	Label      string
	Configured bool
}

// KeyStatus reports the API key state of the hosted providers.
func (c *Client) KeyStatus() []KeyState {
	return []KeyState{
		{Provider: ai.ProviderOpenAI, Label: "OpenAI", Configured: c.apiKeys.OpenAI != ""},
		{Provider: ai.ProviderAnthropic, Label: "Anthropic", Configured: c.apiKeys.Anthropic != ""},
		{Provider: ai.ProviderMistral, Label: "Mistral", Configured: c.apiKeys.Mistral != ""},
		{Provider: ai.ProviderGemini, Label: "Google", Configured: c.apiKeys.Google != ""},
	}
}

// retryEvents returns a channel forwarding retry events as EventRetry, and a func closing it.
func (c *Client) retryEvents(operation string, provider ai.Provider) (chan retry.Event, func()) {
	if c.events == nil {
		return nil, func() {}
	}
	ch := make(chan retry.Event, 10)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for re := range ch {
			re := re
			emit(c.events, Event{Type: EventRetry, Operation: operation, Provider: provider, RetryEvent: &re})
		}
	}()
	return ch, func() {
		close(ch)
		wg.Wait()
	}
}

var _ ai.ChatProvider = (*Client)(nil)
