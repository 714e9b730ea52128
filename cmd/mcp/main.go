// Command mcp serves the llmgate demo tools over MCP stdio.
//
// Claude Desktop configuration:
//
//	{
//	    "mcpServers": {
//	        "llmgate-tools": {
//	            "command": "go",
//	            "args": ["run", "./cmd/mcp"],
//	            "cwd": "/path/to/llmgate"
//	        }
//	    }
//	}
package main

import (
	"log/slog"
	"os"

	"github.com/spetersoncode/llmgate/mcp"
	"github.com/spetersoncode/llmgate/toolbox"
)

func main() {
	// stdout carries the protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	registry := toolbox.AllRegistry()
	logger.Info("serving tools", "tools", registry.Names())

	if err := mcp.ServeStdio(registry,
		mcp.WithName("llmgate-tools"),
		mcp.WithVersion("1.0.0"),
	); err != nil {
		logger.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
