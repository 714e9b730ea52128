package mcp

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/llmgate"
)

// ToMCPTool converts a tool declaration. Parameters become the raw input schema.
func ToMCPTool(t ai.Tool) mcp.Tool {
	params := t.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return mcp.NewToolWithRawSchema(t.Name, t.Description, params)
}

// FromMCPTool converts an MCP tool, preferring its raw schema.
func FromMCPTool(t mcp.Tool) ai.Tool {
	schema := t.RawInputSchema
	if len(schema) == 0 {
		if data, err := json.Marshal(t.InputSchema); err == nil {
			schema = data
		}
	}
	return ai.Tool{Name: t.Name, Description: t.Description, Parameters: schema}
}

// callRequest builds an MCP call from a model tool call.
// Arguments that are not valid JSON are passed through as a string.
func callRequest(call ai.ToolCall) mcp.CallToolRequest {
	var args any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			args = call.Arguments
		}
	}
	var req mcp.CallToolRequest
	req.Params.Name = call.Name
	req.Params.Arguments = args
	return req
}

// resultText flattens an MCP result into text: text parts verbatim, other
// content and structured content as JSON, joined by newlines.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		default:
			if data, err := json.Marshal(content); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	if result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, "\n")
}

// ToMCPCallToolResult converts a tool result.
func ToMCPCallToolResult(result ai.ToolResult) *mcp.CallToolResult {
	if result.IsError {
		return mcp.NewToolResultError(result.Content)
	}
	return mcp.NewToolResultText(result.Content)
}
