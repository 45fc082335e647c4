package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/store"
	"github.com/spetersoncode/aguikit/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = ai.ThreadKey{AgentID: "weather", ThreadID: "t1"}

type weatherArgs struct {
	Location string `json:"location"`
}

type fixture struct {
	store    *store.Store
	registry *tool.Registry
	coord    *Coordinator
}

func newFixture(t *testing.T, tools ...tool.Tool) *fixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	var n atomic.Int64
	f := &fixture{
		store:    store.New(store.WithLogger(quiet)),
		registry: tool.NewRegistry(tool.WithLogger(quiet)),
	}
	for _, tl := range tools {
		f.registry.MustRegister(tl)
	}
	f.coord = New(f.store, f.registry,
		WithLogger(quiet),
		WithMetrics(nil),
		WithIDGenerator(func() string { return fmt.Sprintf("result-%d", n.Add(1)) }),
	)
	f.coord.Start()
	t.Cleanup(f.coord.Close)
	return f
}

// call streams a complete tool call into the store.
func (f *fixture) call(id, name, args string) {
	f.store.Dispatch(key, event.NewToolCallStart(id, name, "m1"))
	f.store.Dispatch(key, event.NewToolCallArgs(id, args))
	f.store.Dispatch(key, event.NewToolCallEnd(id))
}

func (f *fixture) toolCall(t *testing.T, id string) *ai.ToolCall {
	t.Helper()
	c, ok := f.store.Get(key).ToolCall(id)
	require.True(t, ok)
	return c
}

func weatherTool() tool.Tool {
	return tool.Func("getWeather", "Get the weather", func(ctx context.Context, args weatherArgs) (any, error) {
		return map[string]any{"location": args.Location, "temp": 21}, nil
	})
}

func TestCoordinator_ExecutesCompleteCalls(t *testing.T) {
	f := newFixture(t, weatherTool())

	f.store.Dispatch(key, event.NewRunStarted("t1", "run-1"))
	f.call("tc1", "getWeather", `{"location":"Paris"}`)
	f.coord.Wait()

	c := f.toolCall(t, "tc1")
	assert.Equal(t, ai.StatusComplete, c.Status)
	assert.False(t, c.IsError)
	assert.JSONEq(t, `{"location":"Paris","temp":21}`, c.Result)

	snap := f.store.Get(key)
	msg, ok := snap.Message("result-1")
	require.True(t, ok)
	assert.Equal(t, ai.RoleTool, msg.Role)
	assert.Equal(t, "tc1", msg.ToolCallID)
	assert.False(t, snap.StopFollowUp)

	m := f.coord.Metrics()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Executions.WithLabelValues("getWeather", OutcomeSuccess)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InFlight))
}

func TestCoordinator_WaitsForArgsEnd(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, tool.Tool{Name: "count", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		calls.Add(1)
		return "ok", nil
	}})

	f.store.Dispatch(key, event.NewToolCallStart("tc1", "count", "m1"))
	f.store.Dispatch(key, event.NewToolCallArgs("tc1", `{}`))
	f.coord.Wait()
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, ai.StatusInProgress, f.toolCall(t, "tc1").Status)

	f.store.Dispatch(key, event.NewToolCallEnd("tc1"))
	f.coord.Wait()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "ok", f.toolCall(t, "tc1").Result)
}

func TestCoordinator_HandlerFailure(t *testing.T) {
	f := newFixture(t,
		tool.Tool{Name: "fail", Handler: func(ctx context.Context, call tool.Call) (any, error) {
			return nil, errors.New("upstream down")
		}},
		tool.Tool{Name: "explode", Handler: func(ctx context.Context, call tool.Call) (any, error) {
			panic("kaboom")
		}},
	)

	t.Run("error", func(t *testing.T) {
		f.call("tc1", "fail", `{}`)
		f.coord.Wait()

		c := f.toolCall(t, "tc1")
		assert.Equal(t, ai.StatusComplete, c.Status)
		assert.True(t, c.IsError)
		assert.JSONEq(t, `{"error":"tool: fail execution failed: upstream down"}`, c.Result)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.coord.Metrics().Executions.WithLabelValues("fail", OutcomeError)))
	})

	t.Run("panic", func(t *testing.T) {
		f.call("tc2", "explode", `{}`)
		f.coord.Wait()

		c := f.toolCall(t, "tc2")
		assert.Equal(t, ai.StatusComplete, c.Status)
		assert.True(t, c.IsError)
		assert.Contains(t, c.Result, "panic: kaboom")
	})
}

func TestCoordinator_InvalidArguments(t *testing.T) {
	var calls atomic.Int32
	weather := weatherTool()
	handler := weather.Handler
	weather.Handler = func(ctx context.Context, call tool.Call) (any, error) {
		calls.Add(1)
		return handler(ctx, call)
	}
	f := newFixture(t, weather)

	f.call("tc1", "getWeather", `{"city":"Paris"}`)
	f.coord.Wait()

	c := f.toolCall(t, "tc1")
	assert.Equal(t, int32(0), calls.Load())
	assert.True(t, c.IsError)
	assert.Contains(t, c.Result, "invalid arguments")
	assert.Equal(t, float64(1), testutil.ToFloat64(
		f.coord.Metrics().Executions.WithLabelValues("getWeather", OutcomeInvalidArguments)))
}

func TestCoordinator_DuplicateEnd(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, tool.Tool{Name: "once", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		calls.Add(1)
		return "done", nil
	}})

	f.call("tc1", "once", `{}`)
	f.store.Dispatch(key, event.NewToolCallEnd("tc1"))
	f.store.Dispatch(key, event.NewToolCallEnd("tc1"))
	f.coord.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCoordinator_RemovalMidFlight(t *testing.T) {
	running := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, tool.Tool{Name: "slow", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		close(running)
		<-release
		return "finished", nil
	}})

	f.call("tc1", "slow", `{}`)
	<-running

	assert.Equal(t, ai.StatusExecuting, f.toolCall(t, "tc1").Status)
	require.True(t, f.registry.Unregister("slow", ""))
	close(release)
	f.coord.Wait()

	c := f.toolCall(t, "tc1")
	assert.Equal(t, ai.StatusComplete, c.Status)
	assert.Equal(t, "finished", c.Result)

	t.Run("later calls are not picked up", func(t *testing.T) {
		f.call("tc2", "slow", `{}`)
		f.coord.Wait()
		assert.Equal(t, ai.StatusInProgress, f.toolCall(t, "tc2").Status)
	})
}

func TestCoordinator_ReplayAfterReset(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, tool.Tool{Name: "count", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		calls.Add(1)
		return "ok", nil
	}})

	f.call("tc1", "count", `{}`)
	f.coord.Wait()
	require.Equal(t, ai.StatusComplete, f.toolCall(t, "tc1").Status)

	f.store.Reset(key)
	f.call("tc1", "count", `{}`)
	f.coord.Wait()

	assert.Equal(t, ai.StatusComplete, f.toolCall(t, "tc1").Status)
	assert.Equal(t, int32(2), calls.Load())
	f.coord.mu.Lock()
	assert.Empty(t, f.coord.inFlight, "claims are released once results are dispatched")
	f.coord.mu.Unlock()
}

func TestCoordinator_RetiredWhileRunning(t *testing.T) {
	running := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, tool.Tool{Name: "slow", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		close(running)
		<-release
		return "finished", nil
	}})

	f.call("tc1", "slow", `{}`)
	<-running
	f.store.Retire(key)
	close(release)
	f.coord.Wait()

	snap := f.store.Get(key)
	assert.Empty(t, snap.Messages, "a retired thread is not rebuilt by a late result")
	assert.Empty(t, snap.ToolCalls)
}

func TestCoordinator_FollowUpDisabled(t *testing.T) {
	notify := tool.Tool{
		Name:     "notify",
		FollowUp: tool.Bool(false),
		Handler: func(ctx context.Context, call tool.Call) (any, error) {
			return "sent", nil
		},
	}
	f := newFixture(t, notify)

	f.store.Dispatch(key, event.NewRunStarted("t1", "run-1"))
	f.call("tc1", "notify", `{}`)
	f.coord.Wait()

	assert.True(t, f.store.Get(key).StopFollowUp)
}

func TestCoordinator_SkipsCallsWithoutHandler(t *testing.T) {
	f := newFixture(t, tool.Tool{Name: "renderOnly", Render: func(tool.RenderProps) any { return nil }})

	f.call("tc1", "renderOnly", `{}`)
	f.call("tc2", "unknown", `{}`)
	f.coord.Wait()

	assert.Equal(t, ai.StatusInProgress, f.toolCall(t, "tc1").Status)
	assert.Equal(t, ai.StatusInProgress, f.toolCall(t, "tc2").Status)
}

func TestCoordinator_AgentScopedTools(t *testing.T) {
	scoped := tool.Tool{Name: "lookup", AgentID: "other", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		return "scoped", nil
	}}
	f := newFixture(t, scoped)

	f.call("tc1", "lookup", `{}`)
	f.coord.Wait()
	assert.Equal(t, ai.StatusInProgress, f.toolCall(t, "tc1").Status)
}

func TestCoordinator_RestoredCallsAreHistory(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, tool.Tool{Name: "count", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		calls.Add(1)
		return "ok", nil
	}})

	f.store.Dispatch(key, event.NewMessagesSnapshot([]event.Message{
		{ID: "m1", Role: "assistant", ToolCalls: []event.ToolCall{{ID: "old", Name: "count", Arguments: `{}`}}},
	}))
	f.coord.Wait()

	assert.Equal(t, int32(0), calls.Load())
}

func TestCoordinator_StartPicksUpWaitingCalls(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(store.WithLogger(quiet))
	r := tool.NewRegistry(tool.WithLogger(quiet)).Add(tool.Tool{Name: "echo", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		return call.ArgsRaw, nil
	}})

	s.Dispatch(key, event.NewToolCallChunk("tc1", "echo", "m1", `{"x":1}`))
	s.Dispatch(key, event.NewToolCallEnd("tc1"))

	c := New(s, r, WithLogger(quiet))
	c.Start()
	c.Start()
	defer c.Close()
	c.Wait()

	call, ok := s.Get(key).ToolCall("tc1")
	require.True(t, ok)
	assert.Equal(t, `{"x":1}`, call.Result)
	assert.Nil(t, c.Metrics())
}

func TestCoordinator_Close(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, tool.Tool{Name: "count", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		calls.Add(1)
		return "ok", nil
	}})

	f.coord.Close()
	f.coord.Close()
	f.call("tc1", "count", `{}`)
	f.coord.Wait()

	assert.Equal(t, int32(0), calls.Load())
}

func TestEncodeResult(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "plain", "plain"},
		{"bytes", []byte(`{"a":1}`), `{"a":1}`},
		{"struct", struct {
			A int `json:"a"`
		}{A: 1}, `{"a":1}`},
		{"slice", []int{1, 2}, `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeResult(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unencodable", func(t *testing.T) {
		_, err := encodeResult(make(chan int))
		assert.Error(t, err)
	})
}

func TestErrorResult(t *testing.T) {
	assert.JSONEq(t, `{"error":"say \"hi\""}`, errorResult(errors.New(`say "hi"`)))
}
