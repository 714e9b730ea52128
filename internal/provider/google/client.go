package google

import (
	"context"
	"errors"
	"fmt"

	ai "github.com/spetersoncode/llmgate"
	"google.golang.org/genai"
)

// DefaultModel is used when neither the client nor the request names a model.
const DefaultModel = "gemini-2.5-flash-lite"

// Client wraps the Google GenAI SDK to implement ai.ChatProvider.
type Client struct {
	client *genai.Client
	model  string
}

// ClientOption configures the Google client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// New creates a Gemini API client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c := &Client{
		client: client,
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) buildRequest(messages []ai.Message, options *ai.Options) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	contents, system := convertMessages(messages)
	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if len(options.Tools) > 0 {
		config.Tools = convertTools(options.Tools)
		if options.ToolChoice != "" {
			config.ToolConfig = convertToolChoice(options.ToolChoice)
		}
	}
	if options.ResponseFormat == ai.ResponseFormatJSON {
		config.ResponseMIMEType = "application/json"
	}
	return model, contents, config
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	model, contents, config := c.buildRequest(messages, ai.ApplyOptions(opts...))

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, wrapError(err)
	}
	if err := blocked(resp); err != nil {
		return nil, err
	}

	out := &ai.Response{Model: model, Usage: usageOf(resp)}
	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		out.FinishReason = string(cand.FinishReason)
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				out.Content += part.Text
			}
			out.ToolCalls = extractToolCalls(cand.Content.Parts)
		}
	}
	return out, nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	model, contents, config := c.buildRequest(messages, ai.ApplyOptions(opts...))
	ch := make(chan ai.StreamEvent)

	go func() {
		defer close(ch)

		final := &ai.Response{Model: model}
		var parts []*genai.Part
		var chunks int

		for resp, err := range c.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				send(ctx, ch, ai.StreamEvent{Err: wrapError(err)})
				return
			}
			chunks++
			if err := blocked(resp); err != nil {
				send(ctx, ch, ai.StreamEvent{Err: err})
				return
			}

			if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
				for _, part := range resp.Candidates[0].Content.Parts {
					parts = append(parts, part)
					if part.Text == "" {
						continue
					}
					final.Content += part.Text
					if !send(ctx, ch, ai.StreamEvent{Delta: part.Text}) {
						return
					}
				}
				final.FinishReason = string(resp.Candidates[0].FinishReason)
			}
			// usage metadata is cumulative; the last chunk wins
			if resp.UsageMetadata != nil {
				final.Usage = usageOf(resp)
			}
		}

		if chunks == 0 {
			send(ctx, ch, ai.StreamEvent{Err: ai.NewTransientError("gemini: stream returned no data", 0, nil)})
			return
		}

		final.ToolCalls = extractToolCalls(parts)
		send(ctx, ch, ai.StreamEvent{Done: true, Response: final})
	}()

	return ch, nil
}

func usageOf(resp *genai.GenerateContentResponse) ai.Usage {
	if resp.UsageMetadata == nil {
		return ai.Usage{}
	}
	m := resp.UsageMetadata
	return ai.NewUsage(int(m.PromptTokenCount), int(m.CandidatesTokenCount), int(m.TotalTokenCount))
}

// BlockedError indicates the prompt was blocked by content filtering.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("request blocked: %s", e.Reason)
}

func blocked(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		reason := string(resp.PromptFeedback.BlockReason)
		return ai.NewUserInputError("gemini: prompt blocked", 0, &BlockedError{Reason: reason})
	}
	return nil
}

// IsBlocked reports whether err came from content filtering.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

func send(ctx context.Context, ch chan<- ai.StreamEvent, ev ai.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ ai.ChatProvider = (*Client)(nil)
