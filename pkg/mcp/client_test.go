package mcp

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func pingServer() *Server {
	s := NewServer("test", "1.0.0")
	s.RegisterTool("ping", "Reply with ok", func(_ context.Context, args map[string]any) (*mcpgo.CallToolResult, error) {
		if v, ok := args["input"].(string); ok {
			return mcpgo.NewToolResultText("ok " + v), nil
		}
		return mcpgo.NewToolResultText("ok"), nil
	})
	return s
}

func assertPing(t *testing.T, client *Client) {
	t.Helper()
	ctx := context.Background()

	tools, err := client.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) == 0 || tools[0].Name != "ping" {
		t.Fatalf("Expected tool 'ping', got %+v", tools)
	}

	ok, err := client.HasTool(ctx, "ping")
	if err != nil || !ok {
		t.Fatalf("HasTool(ping) = %v, %v", ok, err)
	}
	ok, err = client.HasTool(ctx, "discover")
	if err != nil || ok {
		t.Fatalf("HasTool(discover) = %v, %v", ok, err)
	}

	result, err := client.CallTool(ctx, "ping", map[string]any{"input": "hello"})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	if result == nil || result.IsError || len(result.Content) == 0 {
		t.Fatalf("Expected successful tool result, got %+v", result)
	}
	text, ok := result.Content[0].(mcpgo.TextContent)
	if !ok || text.Text != "ok hello" {
		t.Fatalf("unexpected content %+v", result.Content[0])
	}
}

func TestClient_InProcess(t *testing.T) {
	client, err := NewInProcessClient(context.Background(), pingServer().MCPServer())
	if err != nil {
		t.Fatalf("NewInProcessClient error: %v", err)
	}
	defer client.Close()
	assertPing(t, client)
}

func TestClient_StreamableHTTP(t *testing.T) {
	httpServer := mcpserver.NewTestStreamableHTTPServer(pingServer().MCPServer())
	defer httpServer.Close()

	client, err := NewClientWithStreamableHTTP(context.Background(), httpServer.URL, map[string]string{"X-Api-Key": "k"})
	if err != nil {
		t.Fatalf("NewClientWithStreamableHTTP error: %v", err)
	}
	defer client.Close()
	assertPing(t, client)
}

func TestClient_SSE(t *testing.T) {
	sseServer := mcpserver.NewTestServer(pingServer().MCPServer())
	defer sseServer.Close()

	client, err := NewClientWithSSE(context.Background(), sseServer.URL+"/sse", nil)
	if err != nil {
		t.Fatalf("NewClientWithSSE error: %v", err)
	}
	defer client.Close()
	assertPing(t, client)
}

func TestClient_DialStreamableHTTP(t *testing.T) {
	httpServer := mcpserver.NewTestStreamableHTTPServer(pingServer().MCPServer())
	defer httpServer.Close()

	client, err := Dial(context.Background(), Settings{
		Transport: TransportHTTP,
		URL:       httpServer.URL,
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer client.Close()
	assertPing(t, client)
}

const mcpStdioHelperEnv = "PROMPTX_MCP_STDIO_HELPER"

func TestHelperMCPStdioServer(t *testing.T) {
	if os.Getenv(mcpStdioHelperEnv) != "1" {
		return
	}
	if err := pingServer().ServeStdio(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func TestClient_Stdio(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}

	client, err := NewClientWithStdio(context.Background(), exe,
		[]string{mcpStdioHelperEnv + "=1"},
		[]string{"-test.run", "TestHelperMCPStdioServer"},
	)
	if err != nil {
		t.Fatalf("NewClientWithStdio error: %v", err)
	}
	defer client.Close()
	assertPing(t, client)
}


func TestClient_ToolCache(t *testing.T) {
	srv := pingServer()
	client, err := NewInProcessClient(context.Background(), srv.MCPServer(), WithToolCacheTTL(time.Minute))
	if err != nil {
		t.Fatalf("NewInProcessClient error: %v", err)
	}
	defer client.Close()

	if _, err := client.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	srv.RegisterTool("late", "Registered after the first listing", func(context.Context, map[string]any) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultText("late"), nil
	})

	ok, _ := client.HasTool(context.Background(), "late")
	if ok {
		t.Fatal("expected cached listing without the late tool")
	}
	client.InvalidateTools()
	ok, err = client.HasTool(context.Background(), "late")
	if err != nil || !ok {
		t.Fatalf("HasTool(late) after invalidate = %v, %v", ok, err)
	}
}

func TestServer_ServeStreamableHTTPStopsWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pingServer().ServeStreamableHTTP(ctx, addr) }()

	var client *Client
	deadline := time.Now().Add(5 * time.Second)
	for {
		client, err = NewClientWithStreamableHTTP(context.Background(), "http://"+addr+EndpointPath, nil)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("connect: %v", err)
	}
	assertPing(t, client)
	client.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ServeStreamableHTTP returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
