// Package mcp connects llmgate tool registries to the Model Context Protocol.
//
// [NewServer] exposes a [tool.Registry] to MCP clients such as Claude Desktop:
//
//	s := mcp.NewServer(toolbox.AllRegistry(), mcp.WithName("llmgate-tools"))
//	server.ServeStdio(s)
//
// [Remote] goes the other way. It connects to an MCP server and turns its
// tools into registrations that any local registry can take:
//
//	remote, err := mcp.DialStdio(ctx, "./llmgate-mcp", nil)
//	if err != nil {
//	    return err
//	}
//	defer remote.Close()
//	registry := tool.NewRegistry().Add(remote.Registrations()...)
package mcp
