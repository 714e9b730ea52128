package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	ai "github.com/spetersoncode/llmgate"
)

// registeredTool combines a tool definition with its handler.
type registeredTool struct {
	tool    ai.Tool
	handler Handler
}

// Observer is told about every finished execution.
type Observer func(name string, isError bool, elapsed time.Duration)

// Option configures a Registry.
type Option func(*Registry)

// WithErrorFormat sets how handler errors are rendered into result content.
func WithErrorFormat(format func(error) string) Option {
	return func(r *Registry) {
		r.errorFormat = format
	}
}

// WithHandlerTimeout bounds every handler invocation.
func WithHandlerTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithObserver registers a callback for finished executions.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observers = append(r.observers, o)
	}
}

// Registry manages registered tools and their handlers.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool

	errorFormat func(error) string
	timeout     time.Duration
	observers   []Observer
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:       make(map[string]registeredTool),
		errorFormat: PlainErrors,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool with its handler to the registry.
func (r *Registry) Register(tool ai.Tool, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return &ErrToolAlreadyRegistered{Name: tool.Name}
	}
	r.tools[tool.Name] = registeredTool{tool: tool, handler: handler}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tool ai.Tool, handler Handler) {
	if err := r.Register(tool, handler); err != nil {
		panic(err)
	}
}

// Unregister removes a tool. It is a no-op for unknown names.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a handler by tool name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	return rt.handler, ok
}

// GetTool retrieves a tool definition by name.
func (r *Registry) GetTool(name string) (ai.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	return rt.tool, ok
}

// Tools returns all tool definitions sorted by name, so requests are stable.
func (r *Registry) Tools() []ai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]ai.Tool, 0, len(r.tools))
	for _, rt := range r.tools {
		tools = append(tools, rt.tool)
	}
	slices.SortFunc(tools, func(a, b ai.Tool) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return tools
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs the handler for a tool call.
// An unknown tool returns *ErrToolNotFound. A handler error is not returned:
// it becomes an IsError result so the model can see what went wrong.
func (r *Registry) Execute(ctx context.Context, call ai.ToolCall) (ai.ToolResult, error) {
	r.mu.RLock()
	rt, ok := r.tools[call.Name]
	r.mu.RUnlock()

	if !ok {
		return ai.ToolResult{}, &ErrToolNotFound{Name: call.Name}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := rt.handler(ctx, call)
	result := ai.ToolResult{ToolCallID: call.ID, Name: call.Name, Content: content}
	if err != nil {
		result.Content = r.errorFormat(err)
		result.IsError = true
	}
	r.observe(call.Name, result.IsError, time.Since(start))
	return result, nil
}

// Run is Execute for the model loop: it never fails.
// An unknown tool produces an error result reading "Unknown tool: <name>".
func (r *Registry) Run(ctx context.Context, call ai.ToolCall) ai.ToolResult {
	result, err := r.Execute(ctx, call)
	if err != nil {
		r.observe(call.Name, true, 0)
		return ai.ToolResult{
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    r.errorFormat(fmt.Errorf("Unknown tool: %s", call.Name)),
			IsError:    true,
		}
	}
	return result
}

func (r *Registry) observe(name string, isError bool, elapsed time.Duration) {
	for _, o := range r.observers {
		o(name, isError, elapsed)
	}
}

// Registration holds a tool and its handler for fluent registration.
type Registration struct {
	Tool    ai.Tool
	Handler Handler
}

// Func creates a Registration whose schema is reflected from T.
// Panics if T is not a struct.
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("get_weather", "Get weather", func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return lookup(args.Location), nil
//	    }),
//	)
func Func[T any](name, description string, fn TypedHandler[T]) Registration {
	return Registration{
		Tool: ai.Tool{
			Name:        name,
			Description: description,
			Parameters:  MustSchemaFor[T](),
		},
		Handler: typed(name, fn),
	}
}

func typed[T any](name string, fn TypedHandler[T]) Handler {
	return func(ctx context.Context, call ai.ToolCall) (string, error) {
		var args T
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				return "", &ErrInvalidArguments{Name: name, Err: err}
			}
		}
		return fn(ctx, args)
	}
}

// WithHandler creates a Registration from a Handler and a hand-written schema.
func WithHandler(name, description string, schema json.RawMessage, h Handler) Registration {
	return Registration{
		Tool:    ai.Tool{Name: name, Description: description, Parameters: schema},
		Handler: h,
	}
}

// Add registers tools and returns the registry for chaining.
// Panics if any tool is already registered.
func (r *Registry) Add(regs ...Registration) *Registry {
	for _, reg := range regs {
		r.MustRegister(reg.Tool, reg.Handler)
	}
	return r
}
