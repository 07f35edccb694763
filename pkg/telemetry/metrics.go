// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

// Outcome labels for a tool call.
const (
	OutcomeOK        = "ok"
	OutcomeToolError = "tool_error"
	OutcomeError     = "error"
)

// ToolMetrics counts and times remote tool calls and counts typed errors by
// code. A nil *ToolMetrics records nothing.
type ToolMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewToolMetrics registers the instruments on the global meter provider.
func NewToolMetrics() (*ToolMetrics, error) {
	meter := otel.Meter("promptx-bridge/tools")

	calls, err := meter.Int64Counter(
		"promptx.tool.calls",
		metric.WithDescription("Remote tool calls by tool and outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"promptx.tool.duration",
		metric.WithDescription("Remote tool call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"promptx.errors.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolMetrics{calls: calls, duration: duration, errors: errCounter}, nil
}

// RecordToolCall records one call of tool with its outcome and latency.
func (m *ToolMetrics) RecordToolCall(ctx context.Context, tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrToolName, tool),
		attribute.String(AttrToolOutcome, outcome),
	)
	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// RecordError counts err under its code. Untyped errors count as UNKNOWN.
func (m *ToolMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}
	code := "UNKNOWN"
	recoverable := "unknown"
	if pe, ok := perrors.As(err); ok {
		code = string(pe.Code)
		if pe.Recoverable {
			recoverable = "true"
		} else {
			recoverable = "false"
		}
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.String(AttrComponent, component),
		attribute.String(AttrRecoverable, recoverable),
	))
}
