package tool

import (
	"context"

	ai "github.com/spetersoncode/llmgate"
)

// Handler executes a tool call and returns the result content.
// Arguments arrive as the raw JSON string from the model.
type Handler func(ctx context.Context, call ai.ToolCall) (string, error)

// TypedHandler executes a tool call with arguments decoded into T.
type TypedHandler[T any] func(ctx context.Context, args T) (string, error)
