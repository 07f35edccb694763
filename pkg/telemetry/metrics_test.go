package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

func TestNewToolMetrics(t *testing.T) {
	m, err := NewToolMetrics()
	if err != nil {
		t.Fatalf("failed to create tool metrics: %v", err)
	}
	if m == nil {
		t.Fatal("expected non-nil ToolMetrics")
	}
}

func TestRecordToolCall(t *testing.T) {
	m, _ := NewToolMetrics()
	ctx := context.Background()

	m.RecordToolCall(ctx, "discover", OutcomeOK, 15*time.Millisecond)
	m.RecordToolCall(ctx, "promptx_action", OutcomeToolError, time.Millisecond)

	var nilMetrics *ToolMetrics
	nilMetrics.RecordToolCall(ctx, "discover", OutcomeOK, time.Millisecond)
}

func TestRecordError(t *testing.T) {
	m, _ := NewToolMetrics()
	ctx := context.Background()

	m.RecordError(ctx, perrors.New(perrors.CodeServiceUnavailable, "down", nil), "promptx")
	m.RecordError(ctx, errors.New("plain"), "mcp")
	m.RecordError(ctx, nil, "mcp")

	var nilMetrics *ToolMetrics
	nilMetrics.RecordError(ctx, errors.New("plain"), "mcp")
}

func TestConcurrentMetrics(t *testing.T) {
	m, _ := NewToolMetrics()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				m.RecordToolCall(ctx, "promptx_recall", OutcomeOK, time.Duration(j)*time.Millisecond)
				m.RecordError(ctx, errors.New("x"), "mcp")
			}
		}()
	}
	wg.Wait()
}
