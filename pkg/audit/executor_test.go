package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/promptx-bridge/pkg/promptx"
)

type scriptedExecutor struct {
	result promptx.ToolResult
	err    error
}

func (s *scriptedExecutor) HasTool(context.Context, string) (bool, error) { return true, nil }

func (s *scriptedExecutor) CallTool(context.Context, string, map[string]any) (promptx.ToolResult, error) {
	return s.result, s.err
}

type failingStore struct{}

func (failingStore) Record(context.Context, Record) error { return errors.New("disk full") }
func (failingStore) List(context.Context, Filter) ([]Record, error) { return nil, nil }

func TestRecordingExecutor(t *testing.T) {
	store := NewMemoryStore()
	inner := &scriptedExecutor{result: promptx.ObjectResult(mcp.NewToolResultText("ok"))}
	exec := NewRecordingExecutor(inner, store, nil)
	ctx := context.Background()

	ok, err := exec.HasTool(ctx, "discover")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := exec.CallTool(ctx, "promptx_action", map[string]any{"role": "luban"})
	require.NoError(t, err)
	assert.Equal(t, inner.result, res)

	inner.result = promptx.ObjectResult(mcp.NewToolResultError("nope"))
	_, err = exec.CallTool(ctx, "promptx_action", map[string]any{"role": "ghost"})
	require.NoError(t, err)

	inner.result = promptx.MappingResult(map[string]any{"isError": true})
	_, err = exec.CallTool(ctx, "promptx_recall", map[string]any{"role": "ghost"})
	require.NoError(t, err)

	boom := errors.New("broken pipe")
	inner.err = boom
	_, err = exec.CallTool(ctx, "discover", map[string]any{"focus": "roles"})
	assert.Same(t, boom, err)

	recs, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, OutcomeError, recs[0].Outcome)
	assert.Equal(t, "broken pipe", recs[0].Error)
	assert.Empty(t, recs[0].Role)
	assert.Equal(t, OutcomeToolError, recs[1].Outcome)
	assert.Equal(t, OutcomeToolError, recs[2].Outcome)
	assert.Equal(t, OutcomeOK, recs[3].Outcome)
	assert.Equal(t, "luban", recs[3].Role)
	assert.NotEmpty(t, recs[3].ID)
	assert.NotEqual(t, recs[2].ID, recs[3].ID)
}

func TestRecordingExecutorIgnoresStoreFailure(t *testing.T) {
	inner := &scriptedExecutor{result: promptx.ObjectResult(mcp.NewToolResultText("ok"))}
	exec := NewRecordingExecutor(inner, failingStore{}, nil)

	res, err := exec.CallTool(context.Background(), "discover", nil)
	require.NoError(t, err)
	assert.Equal(t, inner.result, res)
}
