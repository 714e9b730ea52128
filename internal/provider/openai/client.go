package openai

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	ai "github.com/spetersoncode/llmgate"
)

// Well-known OpenAI-compatible endpoints.
const (
	MistralBaseURL = "https://api.mistral.ai/v1"
	OllamaBaseURL  = "http://localhost:11434/v1"
)

// Client wraps the OpenAI SDK to implement ai.ChatProvider.
// The same client serves every OpenAI-compatible backend: OpenAI, Mistral,
// Ollama and the any-llm gateway differ only in base URL and headers.
type Client struct {
	client *openai.Client
	model  string

	baseURL string
	headers map[string]string
}

// ClientOption configures the OpenAI client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// New creates a new OpenAI-compatible client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{model: "gpt-4o-mini"}
	for _, opt := range opts {
		opt(c)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are owned by the unified client.
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.baseURL))
	}
	for k, v := range c.headers {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}

	client := openai.NewClient(reqOpts...)
	c.client = &client
	return c
}

// NewMistral creates a client for Mistral's OpenAI-compatible API.
func NewMistral(apiKey string, opts ...ClientOption) *Client {
	return New(apiKey, append([]ClientOption{WithBaseURL(MistralBaseURL), WithModel("mistral-large-latest")}, opts...)...)
}

// NewOllama creates a client for a local Ollama server. baseURL may be empty,
// the server root, or its /v1 OpenAI-compatible root.
func NewOllama(baseURL string, opts ...ClientOption) *Client {
	// Ollama ignores the key but the SDK requires one.
	return New("ollama", append([]ClientOption{WithBaseURL(ollamaAPIBase(baseURL))}, opts...)...)
}

func ollamaAPIBase(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return OllamaBaseURL
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base
}

// NewGateway creates a client for an any-llm gateway. apiBase is the gateway's /v1 root.
// The master key travels in the X-AnyLLM-Key header and models are addressed as provider:model.
func NewGateway(apiBase, masterKey string, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithBaseURL(apiBase),
		WithHeader("X-AnyLLM-Key", "Bearer "+masterKey),
	}
	return New(masterKey, append(base, opts...)...)
}

func (c *Client) buildParams(messages []ai.Message, options *ai.Options) openai.ChatCompletionNewParams {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: convertMessages(messages),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if options.User != "" {
		params.User = openai.String(options.User)
	}
	if len(options.Tools) > 0 {
		params.Tools = convertTools(options.Tools)
		if options.ToolChoice != "" {
			params.ToolChoice = convertToolChoice(options.ToolChoice)
		}
	}
	if options.ResponseFormat == ai.ResponseFormatJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}
	return params
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	params := c.buildParams(messages, ai.ApplyOptions(opts...))

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ai.NewTransientError("openai: response contained no choices", 0, nil)
	}

	choice := resp.Choices[0]
	return &ai.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
		Usage: ai.NewUsage(
			int(resp.Usage.PromptTokens),
			int(resp.Usage.CompletionTokens),
			int(resp.Usage.TotalTokens),
		),
		ToolCalls: extractToolCalls(choice.Message.ToolCalls),
	}, nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	params := c.buildParams(messages, ai.ApplyOptions(opts...))
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	ch := make(chan ai.StreamEvent)

	go func() {
		defer close(ch)
		defer stream.Close()
		var acc openai.ChatCompletionAccumulator

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !send(ctx, ch, ai.StreamEvent{Delta: chunk.Choices[0].Delta.Content}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			send(ctx, ch, ai.StreamEvent{Err: wrapError(err)})
			return
		}

		final := &ai.Response{
			Model: acc.Model,
			Usage: ai.NewUsage(
				int(acc.Usage.PromptTokens),
				int(acc.Usage.CompletionTokens),
				int(acc.Usage.TotalTokens),
			),
		}
		if len(acc.Choices) > 0 {
			completion := acc.Choices[0]
			final.Content = completion.Message.Content
			final.FinishReason = string(completion.FinishReason)
			final.ToolCalls = extractToolCalls(completion.Message.ToolCalls)
		}
		send(ctx, ch, ai.StreamEvent{Done: true, Response: final})
	}()

	return ch, nil
}

// send delivers ev unless the consumer has gone away.
func send(ctx context.Context, ch chan<- ai.StreamEvent, ev ai.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ ai.ChatProvider = (*Client)(nil)
