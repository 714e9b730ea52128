package llmgate

import "context"

// ChatProvider defines the interface for AI chat providers.
type ChatProvider interface {
	// Chat sends a conversation and returns a complete response.
	Chat(ctx context.Context, messages []Message, opts ...Option) (*Response, error)

	// ChatStream sends a conversation and returns a channel of streaming events.
	// The channel is closed when the stream is complete or an error occurs.
	// Callers should check StreamEvent.Err for any errors.
	ChatStream(ctx context.Context, messages []Message, opts ...Option) (<-chan StreamEvent, error)
}

// CollectStream drains a stream and returns its final response.
// onDelta, when non-nil, is called for every text delta in order.
func CollectStream(ch <-chan StreamEvent, onDelta func(string)) (*Response, error) {
	var final *Response
	var content string
	for ev := range ch {
		if ev.Err != nil {
			// keep draining so the producer goroutine can exit
			for range ch {
			}
			return nil, ev.Err
		}
		if ev.Delta != "" {
			content += ev.Delta
			if onDelta != nil {
				onDelta(ev.Delta)
			}
		}
		if ev.Done {
			final = ev.Response
		}
	}
	if final == nil {
		final = &Response{Content: content}
	}
	return final, nil
}
