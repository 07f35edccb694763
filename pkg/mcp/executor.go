// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/promptx-bridge/pkg/promptx"
	"github.com/jllopis/promptx-bridge/pkg/telemetry"
)

const tracerName = "promptx-bridge/mcp"

// ToolCaller is the subset of Client the executor needs.
type ToolCaller interface {
	HasTool(ctx context.Context, name string) (bool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithMetrics records call counts and latency.
func WithMetrics(m *telemetry.ToolMetrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithTransportName labels spans with the transport in use.
func WithTransportName(name string) ExecutorOption {
	return func(e *Executor) {
		e.transport = name
	}
}

// WithTracerProvider traces calls with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) ExecutorOption {
	return func(e *Executor) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Executor implements promptx.ToolExecutor on top of an MCP client. Call
// errors are returned as produced by the client.
type Executor struct {
	caller    ToolCaller
	transport string
	metrics   *telemetry.ToolMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

var _ promptx.ToolExecutor = (*Executor)(nil)

// NewExecutor wraps caller.
func NewExecutor(caller ToolCaller, opts ...ExecutorOption) *Executor {
	e := &Executor{
		caller: caller,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasTool reports whether the server exposes name.
func (e *Executor) HasTool(ctx context.Context, name string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "mcp.HasTool",
		trace.WithAttributes(telemetry.ToolCallAttributes(name, e.transport, 0, "")...),
	)
	defer span.End()

	ok, err := e.caller.HasTool(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return ok, nil
}

// CallTool runs name and wraps the typed result. Spans carry the argument
// names; the values (engram content, recall queries) are attached only when
// the logger is at debug level.
func (e *Executor) CallTool(ctx context.Context, name string, args map[string]any) (promptx.ToolResult, error) {
	attrs := telemetry.ToolCallAttributes(name, e.transport, 0, "")
	attrs = append(attrs, telemetry.ToolArgKeysAttribute(args)...)
	if e.logger.Enabled(ctx, slog.LevelDebug) {
		if raw, err := json.Marshal(args); err == nil {
			attrs = append(attrs, telemetry.ToolArgsAttribute(string(raw))...)
		}
	}
	ctx, span := e.tracer.Start(ctx, "mcp.CallTool", trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	res, err := e.caller.CallTool(ctx, name, args)
	elapsed := time.Since(start)

	outcome := telemetry.OutcomeOK
	switch {
	case err != nil:
		outcome = telemetry.OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.RecordError(ctx, err, "mcp")
	case res != nil && res.IsError:
		outcome = telemetry.OutcomeToolError
		span.SetStatus(codes.Error, "tool reported error")
	}
	span.SetAttributes(telemetry.ToolCallAttributes(name, "", float64(elapsed.Microseconds())/1000, outcome)...)
	e.metrics.RecordToolCall(ctx, name, outcome, elapsed)
	e.logger.DebugContext(ctx, "mcp.tool.call",
		slog.String("tool", name),
		slog.String("outcome", outcome),
		slog.Duration("elapsed", elapsed),
	)

	if err != nil {
		return promptx.ToolResult{}, err
	}
	return promptx.ObjectResult(res), nil
}
