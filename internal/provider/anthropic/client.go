package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ai "github.com/spetersoncode/llmgate"
)

// DefaultModel is used when neither the client nor the request names a model.
const DefaultModel = "claude-3-5-haiku-20241022"

// defaultMaxTokens is required by the Messages API.
const defaultMaxTokens = 4096

// Client wraps the Anthropic SDK to implement ai.ChatProvider.
type Client struct {
	client *anthropic.Client
	model  string
}

// ClientOption configures the Anthropic client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// New creates a new Anthropic client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	return newClient(apiKey, nil, opts...)
}

func newClient(apiKey string, reqOpts []option.RequestOption, opts ...ClientOption) *Client {
	reqOpts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, reqOpts...)
	client := anthropic.NewClient(reqOpts...)
	c := &Client{
		client: &client,
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request carries the built params and whether JSON mode is emulated with a tool.
type request struct {
	params   anthropic.MessageNewParams
	jsonMode bool
}

func (c *Client) buildRequest(messages []ai.Message, options *ai.Options) request {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	maxTokens := int64(defaultMaxTokens)
	if options.MaxTokens > 0 {
		maxTokens = int64(options.MaxTokens)
	}

	msgs, system := convertMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(*options.Temperature)
	}
	if options.User != "" {
		params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(options.User)}
	}

	req := request{jsonMode: options.ResponseFormat == ai.ResponseFormatJSON}
	switch {
	case req.jsonMode:
		jsonTool, choice := jsonResponseTool()
		params.Tools = append(convertTools(options.Tools), jsonTool)
		params.ToolChoice = choice
	case len(options.Tools) > 0:
		params.Tools = convertTools(options.Tools)
		if options.ToolChoice != "" {
			params.ToolChoice = convertToolChoice(options.ToolChoice)
		}
	}
	req.params = params
	return req
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	req := c.buildRequest(messages, ai.ApplyOptions(opts...))

	resp, err := c.client.Messages.New(ctx, req.params)
	if err != nil {
		return nil, wrapError(err)
	}
	return toResponse(resp, req.jsonMode), nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	req := c.buildRequest(messages, ai.ApplyOptions(opts...))

	stream := c.client.Messages.NewStreaming(ctx, req.params)
	ch := make(chan ai.StreamEvent)

	go func() {
		defer close(ch)
		defer stream.Close()
		var acc anthropic.Message

		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				send(ctx, ch, ai.StreamEvent{Err: err})
				return
			}

			// JSON mode content arrives as tool input, not text
			if req.jsonMode || event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta()
			if text := delta.Delta.AsTextDelta(); text.Type == "text_delta" && text.Text != "" {
				if !send(ctx, ch, ai.StreamEvent{Delta: text.Text}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			send(ctx, ch, ai.StreamEvent{Err: wrapError(err)})
			return
		}

		send(ctx, ch, ai.StreamEvent{Done: true, Response: toResponse(&acc, req.jsonMode)})
	}()

	return ch, nil
}

func toResponse(msg *anthropic.Message, jsonMode bool) *ai.Response {
	var content string
	var toolCalls []ai.ToolCall
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			if jsonMode && block.Name == jsonResponseToolName {
				content = string(block.Input)
				continue
			}
			toolCalls = append(toolCalls, ai.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}

	return &ai.Response{
		Content:      content,
		FinishReason: string(msg.StopReason),
		Model:        string(msg.Model),
		Usage:        ai.NewUsage(int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens), 0),
		ToolCalls:    toolCalls,
	}
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
