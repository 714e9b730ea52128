package agent

import (
	"time"

	ai "github.com/spetersoncode/llmgate"
)

// Options contains configuration for one agent run.
type Options struct {
	// MaxRounds limits how many times tools are executed. After the last round
	// the follow-up request is sent without tools so the model has to answer.
	// Default is 1.
	MaxRounds int

	// Timeout sets a deadline for the entire run. Zero means no timeout.
	Timeout time.Duration

	// Streaming requests each step through ChatStream and emits delta events.
	Streaming bool

	// ParallelToolCalls executes the tool calls of one round concurrently.
	// Results keep the order of the calls either way.
	ParallelToolCalls bool

	// ChatOptions are passed through to every chat call.
	ChatOptions []ai.Option
}

// Option is a functional option for configuring agent execution.
type Option func(*Options)

// WithMaxRounds sets the number of tool rounds before the model must answer.
func WithMaxRounds(n int) Option {
	return func(o *Options) {
		o.MaxRounds = n
	}
}

// WithTimeout sets a deadline for the entire run.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithStreaming enables or disables streamed steps.
func WithStreaming(enabled bool) Option {
	return func(o *Options) {
		o.Streaming = enabled
	}
}

// WithParallelToolCalls enables or disables concurrent tool execution.
func WithParallelToolCalls(enabled bool) Option {
	return func(o *Options) {
		o.ParallelToolCalls = enabled
	}
}

// WithChatOptions passes options through to the ChatProvider.
func WithChatOptions(opts ...ai.Option) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, opts...)
	}
}

// WithModel is a convenience option to set the model for chat calls.
func WithModel(model string) Option {
	return WithChatOptions(ai.WithModel(model))
}

// WithMaxTokens is a convenience option to set max tokens for chat calls.
func WithMaxTokens(n int) Option {
	return WithChatOptions(ai.WithMaxTokens(n))
}

// ApplyOptions applies functional options on top of the defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{MaxRounds: 1}
	for _, opt := range opts {
		opt(o)
	}
	if o.MaxRounds < 0 {
		o.MaxRounds = 0
	}
	return o
}
