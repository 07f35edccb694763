// Package mcp connects to a PromptX MCP server with mark3labs/mcp-go and
// exposes it as a promptx.ToolExecutor.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultInitTimeout = 10 * time.Second
	defaultCacheTTL    = 30 * time.Second

	defaultClientName    = "promptx-bridge"
	defaultClientVersion = "0.1.0"
)

// ClientOption customizes the MCP client wrapper behavior.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithToolCacheTTL sets the tool discovery cache TTL. Use 0 to disable caching.
func WithToolCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl >= 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithClientInfo sets the implementation info sent during initialization.
func WithClientInfo(name, version string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.clientName = name
		}
		if version != "" {
			c.clientVersion = version
		}
	}
}

// WithProtocolVersion pins the protocol version requested at initialization.
func WithProtocolVersion(version string) ClientOption {
	return func(c *Client) {
		if version != "" {
			c.protocolVersion = version
		}
	}
}

// WithClientLogger sets the logger used for connection events.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps an mcp-go client with request timeouts and a tool list cache.
type Client struct {
	mcpClient       client.MCPClient
	timeout         time.Duration
	cacheTTL        time.Duration
	clientName      string
	clientVersion   string
	protocolVersion string
	logger          *slog.Logger

	mu          sync.Mutex
	toolsCache  []mcp.Tool
	cacheExpiry time.Time
}

// NewClient wraps an already initialized MCP client.
func NewClient(c client.MCPClient, opts ...ClientOption) *Client {
	cl := &Client{
		mcpClient:       c,
		timeout:         defaultTimeout,
		cacheTTL:        defaultCacheTTL,
		clientName:      defaultClientName,
		clientVersion:   defaultClientVersion,
		protocolVersion: mcp.LATEST_PROTOCOL_VERSION,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// NewClientWithStreamableHTTP connects to a streamable HTTP endpoint.
func NewClientWithStreamableHTTP(ctx context.Context, url string, headers map[string]string, opts ...ClientOption) (*Client, error) {
	topts := []transport.StreamableHTTPCOption{}
	if len(headers) > 0 {
		topts = append(topts, transport.WithHTTPHeaders(headers))
	}
	raw, err := client.NewStreamableHttpClient(url, topts...)
	if err != nil {
		return nil, fmt.Errorf("mcp: streamable http client: %w", err)
	}
	return connect(ctx, raw, "streamable-http", opts)
}

// NewClientWithSSE connects to an SSE endpoint.
func NewClientWithSSE(ctx context.Context, url string, headers map[string]string, opts ...ClientOption) (*Client, error) {
	topts := []transport.ClientOption{}
	if len(headers) > 0 {
		topts = append(topts, transport.WithHeaders(headers))
	}
	raw, err := client.NewSSEMCPClient(url, topts...)
	if err != nil {
		return nil, fmt.Errorf("mcp: sse client: %w", err)
	}
	return connect(ctx, raw, "sse", opts)
}

// NewClientWithStdio launches command and talks to it over stdin/stdout.
// env entries use the KEY=VALUE form and extend the current environment.
func NewClientWithStdio(ctx context.Context, command string, env []string, args []string, opts ...ClientOption) (*Client, error) {
	raw, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: stdio client: %w", err)
	}
	return connect(ctx, raw, "stdio", opts)
}

// NewInProcessClient connects to a server running in the same process.
func NewInProcessClient(ctx context.Context, srv *server.MCPServer, opts ...ClientOption) (*Client, error) {
	raw, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("mcp: in-process client: %w", err)
	}
	return connect(ctx, raw, "in-process", opts)
}

// connect starts the transport and runs the initialize handshake. The
// transport outlives ctx: SSE keeps its stream open until Close.
func connect(ctx context.Context, raw *client.Client, kind string, opts []ClientOption) (*Client, error) {
	cl := NewClient(raw, opts...)
	if err := raw.Start(context.WithoutCancel(ctx)); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("mcp: start %s transport: %w", kind, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, defaultInitTimeout)
	defer cancel()

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = cl.protocolVersion
	req.Params.ClientInfo = mcp.Implementation{
		Name:    cl.clientName,
		Version: cl.clientVersion,
	}
	res, err := raw.Initialize(initCtx, req)
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("mcp: initialize %s: %w", kind, err)
	}
	cl.logger.Info("mcp.client.connected",
		slog.String("transport", kind),
		slog.String("server", res.ServerInfo.Name),
		slog.String("server_version", res.ServerInfo.Version),
		slog.String("protocol", res.ProtocolVersion),
	)
	return cl, nil
}

// ListTools retrieves the list of tools available on the server.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if cached := c.cachedTools(); cached != nil {
		return cached, nil
	}
	reqCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.mcpClient.ListTools(reqCtx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	c.storeTools(resp.Tools)
	return resp.Tools, nil
}

// HasTool reports whether the server lists a tool called name.
func (c *Client) HasTool(ctx context.Context, name string) (bool, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return false, err
	}
	for _, tool := range tools {
		if tool.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// CallTool executes a tool on the server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	reqCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.mcpClient.CallTool(reqCtx, req)
}

// InvalidateTools drops the cached tool list.
func (c *Client) InvalidateTools() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolsCache = nil
	c.cacheExpiry = time.Time{}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.mcpClient.Close()
}

func (c *Client) cachedTools() []mcp.Tool {
	if c.cacheTTL == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.toolsCache) == 0 || time.Now().After(c.cacheExpiry) {
		return nil
	}
	out := make([]mcp.Tool, len(c.toolsCache))
	copy(out, c.toolsCache)
	return out
}

func (c *Client) storeTools(tools []mcp.Tool) {
	if c.cacheTTL == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolsCache = make([]mcp.Tool, len(tools))
	copy(c.toolsCache, tools)
	c.cacheExpiry = time.Now().Add(c.cacheTTL)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
