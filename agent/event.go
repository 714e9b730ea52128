package agent

import (
	"time"

	ai "github.com/spetersoncode/llmgate"
)

// EventType identifies the kind of event occurring during agent execution.
type EventType string

const (
	// EventStepStart fires before each model request.
	EventStepStart EventType = "step_start"

	// EventDelta fires for each streamed text fragment.
	EventDelta EventType = "delta"

	// EventToolCall fires before a requested tool is executed.
	EventToolCall EventType = "tool_call"

	// EventToolResult fires after a tool handler completes.
	EventToolResult EventType = "tool_result"

	// EventStepComplete fires when a model request returns.
	EventStepComplete EventType = "step_complete"

	// EventComplete fires once with the final Result.
	EventComplete EventType = "complete"

	// EventError fires once when the run fails. No further events follow.
	EventError EventType = "error"
)

// Event represents an observable occurrence during agent execution.
type Event struct {
	Type EventType

	// Step is the current request number (1-indexed).
	Step int

	// Delta contains streamed content for EventDelta.
	Delta string

	// ToolCall is set for EventToolCall and EventToolResult.
	ToolCall *ai.ToolCall

	// ToolResult is set for EventToolResult.
	ToolResult *ai.ToolResult

	// Response is set for EventStepComplete.
	Response *ai.Response

	// Result is set for EventComplete.
	Result *Result

	// Error is set for EventError.
	Error error

	Timestamp time.Time
}

// Result is the outcome of a completed run.
type Result struct {
	// Response is the final model response.
	Response *ai.Response

	// Messages is the full transcript: the input messages, every tool round
	// and the final assistant message.
	Messages []ai.Message

	// Usage is summed over every request of the run.
	Usage ai.Usage

	// ToolCalls lists every executed call in order.
	ToolCalls []ai.ToolCall

	// ToolResults holds the result of each entry of ToolCalls.
	ToolResults []ai.ToolResult

	// Rounds is the number of tool rounds executed.
	Rounds int

	// Steps is the number of model requests made.
	Steps int
}

// UsedTools reports whether any tool was executed.
func (r *Result) UsedTools() bool {
	return r != nil && len(r.ToolCalls) > 0
}
