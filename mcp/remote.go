package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/llmgate"
	"github.com/spetersoncode/llmgate/tool"
)

// ErrToolFailed wraps the text of an error result returned by a remote tool.
var ErrToolFailed = errors.New("remote tool failed")

// Remote is a connection to an MCP server and a cached copy of its tool list.
// It is safe for concurrent use.
type Remote struct {
	client *client.Client
	mu     sync.RWMutex
	tools  []ai.Tool
}

// DialStdio starts command as an MCP server subprocess and connects to it.
func DialStdio(ctx context.Context, command string, env []string, args ...string) (*Remote, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("start MCP server %s: %w", command, err)
	}
	return Connect(ctx, c)
}

// Connect initializes c and fetches its tools. c is closed on failure.
func Connect(ctx context.Context, c *client.Client) (*Remote, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start MCP client: %w", err)
	}

	var init mcp.InitializeRequest
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "llmgate", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, init); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize MCP session: %w", err)
	}

	r := &Remote{client: c}
	if err := r.Refresh(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return r, nil
}

// Close ends the session.
func (r *Remote) Close() error {
	return r.client.Close()
}

// Refresh re-reads the server's tool list.
func (r *Remote) Refresh(ctx context.Context) error {
	result, err := r.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("list MCP tools: %w", err)
	}
	tools := make([]ai.Tool, len(result.Tools))
	for i, t := range result.Tools {
		tools[i] = FromMCPTool(t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	r.mu.Lock()
	r.tools = tools
	r.mu.Unlock()
	return nil
}

// Tools returns the cached tool list, sorted by name.
func (r *Remote) Tools() []ai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ai.Tool(nil), r.tools...)
}

// Call runs a tool on the server. An error result becomes an error wrapping
// ErrToolFailed so registries render it like any local handler failure.
func (r *Remote) Call(ctx context.Context, call ai.ToolCall) (string, error) {
	result, err := r.client.CallTool(ctx, callRequest(call))
	if err != nil {
		return "", fmt.Errorf("call %s: %w", call.Name, err)
	}
	text := resultText(result)
	if result.IsError {
		return "", fmt.Errorf("%w: %s", ErrToolFailed, text)
	}
	return text, nil
}

// Registrations returns one registration per remote tool, each forwarding
// to the server.
func (r *Remote) Registrations() []tool.Registration {
	tools := r.Tools()
	regs := make([]tool.Registration, len(tools))
	for i, t := range tools {
		regs[i] = tool.WithHandler(t.Name, t.Description, t.Parameters, r.Call)
	}
	return regs
}
