package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jllopis/promptx-bridge/pkg/promptx"
	"github.com/jllopis/promptx-bridge/pkg/telemetry"
)

type stubCaller struct {
	lastName string
	lastArgs map[string]any
	result   *mcpgo.CallToolResult
	err      error
	tools    map[string]bool
}

func (s *stubCaller) HasTool(_ context.Context, name string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.tools[name], nil
}

func (s *stubCaller) CallTool(_ context.Context, name string, args map[string]any) (*mcpgo.CallToolResult, error) {
	s.lastName = name
	s.lastArgs = args
	return s.result, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecutor_CallToolWrapsObjectResult(t *testing.T) {
	metrics, err := telemetry.NewToolMetrics()
	if err != nil {
		t.Fatalf("NewToolMetrics: %v", err)
	}
	caller := &stubCaller{result: mcpgo.NewToolResultText("ok")}
	exec := NewExecutor(caller, WithMetrics(metrics), WithTransportName("test"), WithExecutorLogger(quietLogger()))

	res, err := exec.CallTool(context.Background(), "discover", map[string]any{"focus": "roles"})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	obj, ok := res.Object()
	if !ok || obj != caller.result {
		t.Fatalf("expected the client result wrapped as object variant, got %+v", res)
	}
	if caller.lastName != "discover" || caller.lastArgs["focus"] != "roles" {
		t.Fatalf("unexpected call %q %v", caller.lastName, caller.lastArgs)
	}
}

func TestExecutor_ErrorsPassThrough(t *testing.T) {
	boom := errors.New("connection reset")
	exec := NewExecutor(&stubCaller{err: boom}, WithExecutorLogger(quietLogger()))

	res, err := exec.CallTool(context.Background(), "discover", nil)
	if err != boom {
		t.Fatalf("expected the client error unchanged, got %v", err)
	}
	if !res.IsZero() {
		t.Fatalf("expected zero result on error, got %+v", res)
	}
	if _, err := exec.HasTool(context.Background(), "discover"); err != boom {
		t.Fatalf("expected HasTool error unchanged, got %v", err)
	}
}

func TestExecutor_ToolErrorIsAResult(t *testing.T) {
	caller := &stubCaller{result: mcpgo.NewToolResultError("bad role")}
	exec := NewExecutor(caller, WithExecutorLogger(quietLogger()))

	res, err := exec.CallTool(context.Background(), "promptx_action", map[string]any{"role": "x"})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	obj, _ := res.Object()
	if !obj.IsError {
		t.Fatal("expected IsError to be preserved")
	}
}

func spanAttributes(t *testing.T, logger *slog.Logger, args map[string]any) map[attribute.Key]attribute.Value {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	caller := &stubCaller{result: mcpgo.NewToolResultText("ok")}
	exec := NewExecutor(caller, WithTracerProvider(tp), WithExecutorLogger(logger))
	if _, err := exec.CallTool(context.Background(), "promptx_remember", args); err != nil {
		t.Fatalf("CallTool error: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestExecutor_SpanOmitsArgumentValuesAboveDebug(t *testing.T) {
	args := map[string]any{"role": "luban", "engrams": []any{map[string]any{"content": "private note"}}}
	attrs := spanAttributes(t, quietLogger(), args)

	if v, ok := attrs[telemetry.AttrToolArgs]; ok {
		t.Fatalf("argument values leaked into span: %s", v.Emit())
	}
	keys, ok := attrs[telemetry.AttrToolArgKeys]
	if !ok {
		t.Fatal("expected argument keys on span")
	}
	if got := keys.AsStringSlice(); len(got) != 2 || got[0] != "engrams" || got[1] != "role" {
		t.Fatalf("argument keys = %v", got)
	}
}

func TestExecutor_SpanCarriesArgumentValuesAtDebug(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	attrs := spanAttributes(t, logger, map[string]any{"role": "luban"})

	v, ok := attrs[telemetry.AttrToolArgs]
	if !ok {
		t.Fatal("expected argument values on span at debug level")
	}
	if got := v.AsString(); got != `{"role":"luban"}` {
		t.Fatalf("arguments = %s", got)
	}
}

func TestMockPromptX_EndToEnd(t *testing.T) {
	roles := []promptx.Role{
		{ID: "assistant", Name: "Assistant", Source: promptx.SourceSystem},
		{ID: "luban", Name: "Luban", Description: "Tool integration expert", Source: promptx.SourceProject},
		{ID: "notes", Name: "Notes", Source: promptx.SourceUser},
	}
	mock := NewMockPromptX(roles, promptx.DefaultToolNames())

	client, err := NewInProcessClient(context.Background(), mock.MCPServer(), WithClientLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewInProcessClient error: %v", err)
	}
	defer client.Close()

	svc := promptx.NewService(NewExecutor(client, WithExecutorLogger(quietLogger())), promptx.WithLogger(quietLogger()))
	ctx := context.Background()
	if !svc.IsAvailable(ctx) {
		t.Fatal("expected mock server to be available")
	}

	got, err := svc.Discover(ctx)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(got) != len(roles) {
		t.Fatalf("expected %d roles, got %+v", len(roles), got)
	}
	for i, r := range got {
		if r.ID != roles[i].ID || r.Name != roles[i].Name || r.Description != roles[i].Description || r.Source != roles[i].Source {
			t.Fatalf("role %d mismatch: got %+v want %+v", i, r, roles[i])
		}
		if r.Reference != promptx.RoleReference(r.ID) {
			t.Fatalf("unexpected reference %q", r.Reference)
		}
	}

	res, err := svc.Activate(ctx, "luban")
	if err != nil {
		t.Fatalf("Activate error: %v", err)
	}
	text, ok, err := promptx.Extract(res)
	if err != nil || !ok || text != "# Luban\n\nTool integration expert\n" {
		t.Fatalf("Extract(activate) = %q, %v, %v", text, ok, err)
	}

	res, err = svc.Recall(ctx, "luban", nil, "")
	if err != nil {
		t.Fatalf("Recall error: %v", err)
	}
	if text, _, _ := promptx.Extract(res); text != "panoramic scan of luban: empty network" {
		t.Fatalf("unexpected recall text %q", text)
	}

	res, err = svc.Remember(ctx, "luban", []promptx.Engram{{Content: "c", Schema: "a b", Strength: 0.5, Type: promptx.EngramAtomic}})
	if err != nil {
		t.Fatalf("Remember error: %v", err)
	}
	if text, _, _ := promptx.Extract(res); text != "stored 1 engrams for luban" {
		t.Fatalf("unexpected remember text %q", text)
	}
}

func TestMockPromptX_MissingProbeTool(t *testing.T) {
	client, err := NewInProcessClient(context.Background(), pingServer().MCPServer(), WithClientLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewInProcessClient error: %v", err)
	}
	defer client.Close()

	svc := promptx.NewService(NewExecutor(client), promptx.WithLogger(quietLogger()))
	if svc.IsAvailable(context.Background()) {
		t.Fatal("expected a server without discover to be unavailable")
	}
}
