package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/promptx-bridge/pkg/promptx"
)

// RecordingExecutor records every CallTool on a Store and otherwise behaves
// exactly like the executor it wraps. Store failures are logged and dropped.
type RecordingExecutor struct {
	next   promptx.ToolExecutor
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

var _ promptx.ToolExecutor = (*RecordingExecutor)(nil)

// NewRecordingExecutor wraps next. A nil logger uses slog.Default().
func NewRecordingExecutor(next promptx.ToolExecutor, store Store, logger *slog.Logger) *RecordingExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingExecutor{next: next, store: store, logger: logger, now: time.Now}
}

// HasTool is not recorded.
func (e *RecordingExecutor) HasTool(ctx context.Context, name string) (bool, error) {
	return e.next.HasTool(ctx, name)
}

// CallTool forwards the call and records it.
func (e *RecordingExecutor) CallTool(ctx context.Context, name string, args map[string]any) (promptx.ToolResult, error) {
	started := e.now()
	result, err := e.next.CallTool(ctx, name, args)

	rec := Record{
		ID:         uuid.NewString(),
		Tool:       name,
		Args:       args,
		Outcome:    outcomeOf(result, err),
		StartedAt:  started.UTC(),
		FinishedAt: e.now().UTC(),
	}
	if role, ok := args["role"].(string); ok {
		rec.Role = role
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if storeErr := e.store.Record(context.WithoutCancel(ctx), rec); storeErr != nil {
		e.logger.Warn("audit.record.failed",
			slog.String("tool", name),
			slog.String("error", storeErr.Error()),
		)
	}
	return result, err
}

func outcomeOf(result promptx.ToolResult, err error) string {
	if err != nil {
		return OutcomeError
	}
	if obj, ok := result.Object(); ok && obj.IsError {
		return OutcomeToolError
	}
	if m, ok := result.Mapping(); ok {
		if flag, _ := m["isError"].(bool); flag {
			return OutcomeToolError
		}
	}
	return OutcomeOK
}
