package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/tool"
)

// Agent runs the tool-calling round trip against a chat provider.
type Agent struct {
	chatClient ai.ChatProvider
	registry   *tool.Registry
}

// New creates a new Agent. A nil or empty registry makes every run a plain chat.
func New(c ai.ChatProvider, registry *tool.Registry) *Agent {
	return &Agent{
		chatClient: c,
		registry:   registry,
	}
}

// Run executes the round trip and returns the final result.
// The messages slice is never modified, so on error the caller still holds
// the conversation as it was before the failed turn.
func (a *Agent) Run(ctx context.Context, messages []ai.Message, opts ...Option) (*Result, error) {
	var result *Result
	var runErr error
	for ev := range a.RunStream(ctx, messages, opts...) {
		switch ev.Type {
		case EventComplete:
			result = ev.Result
		case EventError:
			runErr = ev.Error
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if result == nil {
		return nil, ctx.Err()
	}
	return result, nil
}

// RunStream executes the round trip and returns a channel of events.
// The channel is closed after EventComplete or EventError.
// Callers should drain the channel to ensure proper cleanup.
func (a *Agent) RunStream(ctx context.Context, messages []ai.Message, opts ...Option) <-chan Event {
	ch := make(chan Event, 64)
	go a.runLoop(ctx, messages, ch, ApplyOptions(opts...))
	return ch
}

func (a *Agent) runLoop(ctx context.Context, messages []ai.Message, ch chan<- Event, options *Options) {
	defer close(ch)

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	r := &run{ctx: ctx, ch: ch}
	result := &Result{Messages: append([]ai.Message(nil), messages...)}

	for {
		result.Steps++
		step := result.Steps
		r.emit(Event{Type: EventStepStart, Step: step})

		chatOpts := options.ChatOptions
		canCall := a.hasTools() && result.Rounds < options.MaxRounds
		switch {
		case canCall:
			chatOpts = append([]ai.Option{ai.WithTools(a.registry.Tools())}, chatOpts...)
		case a.hasTools() && hasToolBlocks(result.Messages):
			// Providers reject tool blocks in a transcript without tool
			// definitions, so keep them declared but not callable.
			chatOpts = append(append([]ai.Option{ai.WithTools(a.registry.Tools())}, chatOpts...),
				ai.WithToolChoice(ai.ToolChoiceNone))
		}

		resp, err := a.request(r, step, result.Messages, chatOpts, options.Streaming)
		if err != nil {
			if options.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			r.fail(step, err)
			return
		}
		result.Usage = result.Usage.Add(resp.Usage)
		r.emit(Event{Type: EventStepComplete, Step: step, Response: resp})

		if !canCall || !resp.HasToolCalls() {
			result.Response = resp
			result.Messages = append(result.Messages, ai.AssistantMessage(resp.Content))
			r.emit(Event{Type: EventComplete, Step: step, Result: result})
			return
		}

		result.Rounds++
		result.Messages = append(result.Messages, ai.NewToolCallMessage(resp.Content, resp.ToolCalls))

		results := a.execute(r, step, resp.ToolCalls, options.ParallelToolCalls)
		result.ToolCalls = append(result.ToolCalls, resp.ToolCalls...)
		result.ToolResults = append(result.ToolResults, results...)
		result.Messages = append(result.Messages, ai.NewToolResultMessage(results...))

		if err := ctx.Err(); err != nil {
			r.fail(step, err)
			return
		}
	}
}

func (a *Agent) hasTools() bool {
	return a.registry != nil && a.registry.Len() > 0
}

// hasToolBlocks reports whether the transcript carries tool calls or results.
func hasToolBlocks(messages []ai.Message) bool {
	for _, m := range messages {
		if m.Role == ai.RoleTool || len(m.ToolCalls) > 0 {
			return true
		}
	}
	return false
}

func (a *Agent) request(r *run, step int, messages []ai.Message, opts []ai.Option, streaming bool) (*ai.Response, error) {
	if !streaming {
		return a.chatClient.Chat(r.ctx, messages, opts...)
	}

	stream, err := a.chatClient.ChatStream(r.ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	resp, err := ai.CollectStream(stream, func(delta string) {
		r.emit(Event{Type: EventDelta, Step: step, Delta: delta})
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoResponse
	}
	return resp, nil
}

func (a *Agent) execute(r *run, step int, calls []ai.ToolCall, parallel bool) []ai.ToolResult {
	results := make([]ai.ToolResult, len(calls))
	if !parallel || len(calls) < 2 {
		for i, tc := range calls {
			results[i] = a.executeOne(r, step, tc)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(idx int, call ai.ToolCall) {
			defer wg.Done()
			results[idx] = a.executeOne(r, step, call)
		}(i, tc)
	}
	wg.Wait()
	return results
}

func (a *Agent) executeOne(r *run, step int, tc ai.ToolCall) ai.ToolResult {
	r.emit(Event{Type: EventToolCall, Step: step, ToolCall: &tc})
	result := a.registry.Run(r.ctx, tc)
	r.emit(Event{Type: EventToolResult, Step: step, ToolCall: &tc, ToolResult: &result})
	return result
}

// run carries the per-run context and event channel.
type run struct {
	ctx context.Context
	ch  chan<- Event
	mu  sync.Mutex
}

// emit delivers e unless the run's context is done.
func (r *run) emit(e Event) {
	e.Timestamp = time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case r.ch <- e:
	case <-r.ctx.Done():
	}
}

// fail delivers the terminal error event. It is sent even after cancellation
// so Run can report why the run stopped.
func (r *run) fail(step int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ch <- Event{Type: EventError, Step: step, Error: err, Timestamp: time.Now()}
}
