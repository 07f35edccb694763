package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/promptx-bridge/pkg/promptx"
)

// EndpointPath is where ServeStreamableHTTP mounts the MCP endpoint.
const EndpointPath = "/mcp"

// ToolHandler answers one tool call with plain arguments.
type ToolHandler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// Server wraps an mcp-go server. It backs the local mock PromptX server
// used for development and tests.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server.
func NewServer(name, version string) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
	}
}

// RegisterTool registers a tool with the server.
func (s *Server) RegisterTool(name, description string, handler ToolHandler) {
	tool := mcp.NewTool(name, mcp.WithDescription(description))
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handler(ctx, request.GetArguments())
	})
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeStreamableHTTP serves the streamable HTTP transport on addr under
// /mcp until ctx is done.
func (s *Server) ServeStreamableHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, server.NewStreamableHTTPServer(s.mcpServer, server.WithEndpointPath(EndpointPath)))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// NewMockPromptX builds a server that publishes the PromptX role tools with
// canned answers for roles. Discover renders the Markdown listing PromptX
// prints; action returns a short role definition.
func NewMockPromptX(roles []promptx.Role, names promptx.ToolNames) *Server {
	if names.Discover == "" {
		names = promptx.DefaultToolNames()
	}
	s := NewServer("promptx-mock", "0.1.0")

	s.RegisterTool(names.Discover, "List available roles", func(_ context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(roleListing(roles)), nil
	})
	s.RegisterTool(names.Action, "Activate a role", func(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		id, _ := args["role"].(string)
		for _, r := range roles {
			if r.ID == id {
				return mcp.NewToolResultText(fmt.Sprintf("# %s\n\n%s\n", r.Name, r.Description)), nil
			}
		}
		return mcp.NewToolResultError(fmt.Sprintf("role %q not found", id)), nil
	})
	s.RegisterTool(names.Recall, "Recall role memories", func(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		id, _ := args["role"].(string)
		if q, ok := args["query"].(string); ok {
			return mcp.NewToolResultText(fmt.Sprintf("no memories of %s match %q", id, q)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("panoramic scan of %s: empty network", id)), nil
	})
	s.RegisterTool(names.Remember, "Store role memories", func(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		id, _ := args["role"].(string)
		engrams, _ := args["engrams"].([]any)
		return mcp.NewToolResultText(fmt.Sprintf("stored %d engrams for %s", len(engrams), id)), nil
	})
	return s
}

var sectionTitles = map[promptx.Source]string{
	promptx.SourceSystem:  "📦 **System Roles**",
	promptx.SourceProject: "🏗️ **Project Roles**",
	promptx.SourceUser:    "👤 **User Roles**",
}

func roleListing(roles []promptx.Role) string {
	var b strings.Builder
	b.WriteString("🎭 Available roles\n")
	for _, group := range promptx.GroupBySource(roles) {
		title, ok := sectionTitles[group.Source]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d)\n", title, len(group.Roles))
		for _, r := range group.Roles {
			label := r.Name
			if r.Description != "" {
				label += " - " + r.Description
			}
			fmt.Fprintf(&b, "- `%s`: %s → action(\"%s\")\n", r.ID, label, r.ID)
		}
	}
	return b.String()
}
