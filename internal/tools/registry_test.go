package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubTool struct {
	name string
	fn   func(ctx context.Context, input json.RawMessage) (interface{}, error)
}

func (s *stubTool) Name() string            { return s.name }
func (s *stubTool) Description() string     { return "stub" }
func (s *stubTool) Schema() json.RawMessage { return json.RawMessage(`{"type": "object"}`) }

func (s *stubTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	return s.fn(ctx, input)
}

func echoTool(name string) *stubTool {
	return &stubTool{
		name: name,
		fn: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			return string(input), nil
		},
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("echo")))

	err := reg.Register(echoTool("echo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryListsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(echoTool(name)))
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name())
	assert.Equal(t, "zeta", list[2].Name())
}

func TestExecuteWithTimeoutRunsTool(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("echo")))

	result, err := reg.ExecuteWithTimeout(context.Background(), "echo", json.RawMessage(`{"x":1}`), time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, result)
}

func TestExecuteWithTimeoutNoDeadline(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("echo")))

	// A zero timeout means the call runs without a deadline.
	result, err := reg.ExecuteWithTimeout(context.Background(), "echo", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "", result)
}

func TestExecuteWithTimeoutUnknownTool(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.ExecuteWithTimeout(context.Background(), "nope", nil, time.Second)
	require.Error(t, err)

	var terr *ToolError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, -32601, terr.Code)
	assert.Contains(t, terr.Message, "nope")
}

func TestExecuteWithTimeoutRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubTool{
		name: "boom",
		fn: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			panic("tool exploded")
		},
	}))

	_, err := reg.ExecuteWithTimeout(context.Background(), "boom", nil, time.Second)
	require.Error(t, err)

	var terr *ToolError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, -32603, terr.Code)
	assert.Contains(t, terr.Message, "panic: tool exploded")
}

func TestExecuteWithTimeoutExpires(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubTool{
		name: "slow",
		fn: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}))

	_, err := reg.ExecuteWithTimeout(context.Background(), "slow", nil, 30*time.Millisecond)
	require.Error(t, err)

	var terr *ToolError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, -32000, terr.Code)
	assert.Contains(t, terr.Message, "timed out")
}

func TestExecuteWithTimeoutHonorsCancel(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubTool{
		name: "slow",
		fn: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.ExecuteWithTimeout(ctx, "slow", nil, time.Second)
	require.Error(t, err)
	assert.ErrorContains(t, err, "context canceled")
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
