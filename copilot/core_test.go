package copilot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/reducer"
	"github.com/spetersoncode/aguikit/store"
	"github.com/spetersoncode/aguikit/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCore(t *testing.T, opts ...Option) *Core {
	t.Helper()
	var n atomic.Int64
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(func() string { return fmt.Sprintf("result-%d", n.Add(1)) }),
	}, opts...)
	c := New(opts...)
	t.Cleanup(c.Close)
	return c
}

func weatherTool() tool.Tool {
	return tool.Tool{
		Name: "getWeather",
		Parameters: []byte(`{
			"type": "object",
			"properties": {"location": {"type": "string"}},
			"required": ["location"]
		}`),
		Handler: func(ctx context.Context, call tool.Call) (any, error) {
			return map[string]any{"location": call.Args["location"], "temperature": 22}, nil
		},
	}
}

func TestCore_WeatherRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	core := newCore(t, WithMetrics(reg))
	require.NoError(t, core.AddTool(weatherTool()))

	agent := core.Agent("weather")
	key := agent.Key("thread-1")

	var (
		mu       sync.Mutex
		versions []uint64
		finished []string
	)
	unsubscribe := core.Subscribe(key, Subscriber{
		OnSnapshot: func(s *reducer.Snapshot) {
			mu.Lock()
			versions = append(versions, s.Version)
			mu.Unlock()
		},
		OnRunFinished: func(s *reducer.Snapshot, runID string) {
			mu.Lock()
			finished = append(finished, runID)
			mu.Unlock()
		},
	})
	defer unsubscribe()

	for _, e := range []event.Event{
		event.NewRunStarted("thread-1", "run-1"),
		event.NewTextMessageStart("m1", "assistant"),
		event.NewTextMessageContent("m1", "Checking the weather."),
		event.NewTextMessageEnd("m1"),
		event.NewToolCallStart("tc1", "getWeather", "m1"),
		event.NewToolCallArgs("tc1", `{"location":`),
		event.NewToolCallArgs("tc1", `"Paris"}`),
		event.NewToolCallEnd("tc1"),
	} {
		agent.Ingest("thread-1", e)
	}
	core.Coordinator().Wait()
	agent.Ingest("thread-1", event.NewRunFinished("thread-1", "run-1"))

	snap := agent.Snapshot("thread-1")
	call, ok := snap.ToolCall("tc1")
	require.True(t, ok)
	assert.Equal(t, ai.StatusComplete, call.Status)
	assert.JSONEq(t, `{"location":"Paris","temperature":22}`, call.Result)
	assert.False(t, snap.Running)

	assert.Equal(t, []string{"run-1"}, core.RunIDsForThread("weather", "thread-1"))
	assert.Equal(t, "thread-1", agent.ThreadID())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"run-1"}, finished)
	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1])
	}

	count := testutil.ToFloat64(core.Coordinator().Metrics().Executions.WithLabelValues("getWeather", "success"))
	assert.Equal(t, float64(1), count)
}

func TestCore_RunError(t *testing.T) {
	core := newCore(t)
	agent := core.Agent("weather")

	var got *ai.RunError
	calls := 0
	core.Subscribe(agent.Key("t1"), Subscriber{
		OnRunError: func(_ *reducer.Snapshot, err *ai.RunError) {
			got = err
			calls++
		},
		OnRunFinished: func(*reducer.Snapshot, string) {
			t.Error("a failed run is not reported as finished")
		},
	})

	agent.Ingest("t1", event.NewRunStarted("t1", "r1"))
	agent.Ingest("t1", event.NewTextMessageChunk("m1", "assistant", "partial"))
	agent.Ingest("t1", event.NewRunError("model overloaded", "overloaded"))
	agent.Ingest("t1", event.NewTextMessageChunk("m2", "assistant", "late"))

	require.NotNil(t, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "model overloaded", got.Message)
	assert.Equal(t, "r1", got.RunID)
	assert.NotEmpty(t, agent.Snapshot("t1").Messages, "messages survive the error")
}

func TestCore_Unsubscribe(t *testing.T) {
	core := newCore(t)
	agent := core.Agent("a")

	calls := 0
	unsubscribe := core.Subscribe(agent.Key("t1"), Subscriber{
		OnSnapshot: func(*reducer.Snapshot) { calls++ },
	})
	agent.Ingest("t1", event.NewRunStarted("t1", "r1"))
	unsubscribe()
	unsubscribe()
	agent.Ingest("t1", event.NewRunFinished("t1", "r1"))

	assert.Equal(t, 1, calls)
}

func TestCore_SubscribeAll(t *testing.T) {
	core := newCore(t)

	var keys []ai.ThreadKey
	core.SubscribeAll(Subscriber{
		OnSnapshot: func(s *reducer.Snapshot) { keys = append(keys, s.Key) },
	})
	core.Agent("a").Ingest("t1", event.NewRunStarted("t1", "r1"))
	core.Agent("b").Ingest("t2", event.NewRunStarted("t2", "r2"))

	assert.Equal(t, []ai.ThreadKey{{AgentID: "a", ThreadID: "t1"}, {AgentID: "b", ThreadID: "t2"}}, keys)
}

func TestCore_Renderers(t *testing.T) {
	core := newCore(t)
	staticRender := func(tool.RenderProps) any { return "static" }
	wildcard := func(tool.RenderProps) any { return "fallback" }

	core.SetRenderToolCalls([]tool.RendererRegistration{
		{Name: "getWeather", Render: staticRender},
		{Name: tool.Wildcard, Render: wildcard},
	})

	call := &ai.ToolCall{ID: "tc1", Name: "getWeather", Status: ai.StatusInProgress}

	out, ok := core.RenderToolCall("weather", call)
	require.True(t, ok)
	assert.Equal(t, "static", out)

	t.Run("tool render beats static list", func(t *testing.T) {
		wt := weatherTool()
		wt.AgentID = "weather"
		wt.Render = func(p tool.RenderProps) any { return "tool:" + p.Status.String() }
		require.NoError(t, core.AddTool(wt))

		out, ok := core.RenderToolCall("weather", call)
		require.True(t, ok)
		assert.Equal(t, "tool:inProgress", out)

		out, _ = core.RenderToolCall("other", call)
		assert.Equal(t, "static", out)

		assert.True(t, core.RemoveTool("getWeather", "weather"))
		out, _ = core.RenderToolCall("weather", call)
		assert.Equal(t, "static", out)
	})

	t.Run("dynamic renderer", func(t *testing.T) {
		require.NoError(t, core.AddRenderer(tool.RendererRegistration{
			Name: "search", Render: func(tool.RenderProps) any { return "search" },
		}))
		out, ok := core.RenderToolCall("weather", &ai.ToolCall{Name: "search"})
		require.True(t, ok)
		assert.Equal(t, "search", out)

		assert.True(t, core.RemoveRenderer("search"))
		out, _ = core.RenderToolCall("weather", &ai.ToolCall{Name: "search"})
		assert.Equal(t, "fallback", out)
	})

	t.Run("nil call", func(t *testing.T) {
		_, ok := core.ResolveRenderer("weather", nil)
		assert.False(t, ok)
	})
}

func TestCore_Agent(t *testing.T) {
	core := newCore(t)
	assert.Same(t, core.Agent("weather"), core.Agent("weather"))
	assert.NotSame(t, core.Agent("weather"), core.Agent("other"))
	assert.Equal(t, "weather", core.Agent("weather").ID())
}

func TestAgent_IngestAGUI(t *testing.T) {
	core := newCore(t)
	agent := core.Agent("weather")

	_, err := agent.IngestAGUI("t1", events.NewRunStartedEvent("t1", "r1"))
	require.NoError(t, err)
	snap, err := agent.IngestAGUI("t1", events.NewTextMessageStartEvent("m1", events.WithRole("assistant")))
	require.NoError(t, err)
	require.NotNil(t, snap)
	snap, err = agent.IngestAGUI("t1", events.NewTextMessageContentEvent("m1", "Hello"))
	require.NoError(t, err)

	msg, ok := snap.Message("m1")
	require.True(t, ok)
	assert.Equal(t, "Hello", msg.Content)
	assert.True(t, snap.Running)

	_, err = agent.IngestAGUI("t1", nil)
	assert.Error(t, err)
}

func TestAgent_Run(t *testing.T) {
	core := newCore(t)
	agent := core.Agent("weather")

	ch := make(chan event.Event, 4)
	ch <- event.NewRunStarted("t1", "r1")
	ch <- event.NewTextMessageChunk("m1", "assistant", "Hi")
	ch <- event.NewRunFinished("t1", "r1")
	close(ch)

	require.NoError(t, agent.Run(context.Background(), "t1", ch))
	assert.Len(t, agent.Snapshot("t1").Messages, 1)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := agent.Run(ctx, "t1", make(chan event.Event))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAgent_SwitchThread(t *testing.T) {
	ctx := context.Background()
	core := newCore(t, WithAdapter(store.NewMemoryAdapter()))
	agent := core.Agent("weather")

	require.NoError(t, agent.SwitchThread(ctx, "t1"))
	agent.Ingest("", event.NewRunStarted("t1", "r1"))
	agent.Ingest("", event.NewTextMessageChunk("m1", "assistant", "first thread"))
	assert.Equal(t, "t1", agent.Key("").ThreadID)

	require.NoError(t, agent.SwitchThread(ctx, "t2"))
	assert.Equal(t, "t2", agent.ThreadID())
	assert.Empty(t, agent.Snapshot("t1").Messages, "history of the old thread is retired")
	assert.Empty(t, agent.Snapshot("").Messages)

	require.NoError(t, agent.SwitchThread(ctx, "t1"))
	msgs := agent.Snapshot("").Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "first thread", msgs[0].Content)

	assert.ErrorIs(t, agent.SwitchThread(ctx, ""), ai.ErrEmptyThreadID)
}

func blockingTool(running, release chan struct{}) tool.Tool {
	return tool.Tool{Name: "slow", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		close(running)
		<-release
		return "done", nil
	}}
}

func TestAgent_SwitchThreadWhileToolRuns(t *testing.T) {
	ctx := context.Background()
	start := func(t *testing.T, agent *Agent) {
		t.Helper()
		require.NoError(t, agent.SwitchThread(ctx, "t1"))
		for _, e := range []event.Event{
			event.NewRunStarted("t1", "r1"),
			event.NewTextMessageChunk("m1", "assistant", "Working on it."),
			event.NewToolCallStart("tc1", "slow", "m1"),
			event.NewToolCallArgs("tc1", `{}`),
			event.NewToolCallEnd("tc1"),
		} {
			agent.Ingest("", e)
		}
	}

	t.Run("result lands in the saved transcript", func(t *testing.T) {
		running, release := make(chan struct{}), make(chan struct{})
		core := newCore(t, WithAdapter(store.NewMemoryAdapter()))
		require.NoError(t, core.AddTool(blockingTool(running, release)))
		agent := core.Agent("weather")

		start(t, agent)
		<-running
		require.NoError(t, agent.SwitchThread(ctx, "t2"))
		close(release)
		core.Coordinator().Wait()
		assert.Empty(t, agent.Snapshot("t1").Messages, "a late result does not rebuild a retired thread")

		require.NoError(t, agent.SwitchThread(ctx, "t1"))
		snap := agent.Snapshot("")
		_, ok := snap.Message("m1")
		require.True(t, ok, "transcript of t1 is restored")
		call, ok := snap.ToolCall("tc1")
		require.True(t, ok)
		assert.Equal(t, ai.StatusComplete, call.Status)
		assert.Equal(t, "done", call.Result)
	})

	t.Run("result lands in the restored thread", func(t *testing.T) {
		running, release := make(chan struct{}), make(chan struct{})
		core := newCore(t, WithAdapter(store.NewMemoryAdapter()))
		require.NoError(t, core.AddTool(blockingTool(running, release)))
		agent := core.Agent("weather")

		start(t, agent)
		<-running
		require.NoError(t, agent.SwitchThread(ctx, "t2"))
		require.NoError(t, agent.SwitchThread(ctx, "t1"))
		close(release)
		core.Coordinator().Wait()

		call, ok := agent.Snapshot("").ToolCall("tc1")
		require.True(t, ok)
		assert.Equal(t, ai.StatusComplete, call.Status)
		assert.Equal(t, "done", call.Result)
	})
}

func TestCore_CloseWaitsForHandlers(t *testing.T) {
	core := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	running := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, core.AddTool(tool.Tool{Name: "slow", Handler: func(ctx context.Context, call tool.Call) (any, error) {
		close(running)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return "done", nil
	}}))

	agent := core.Agent("a")
	agent.Ingest("t1", event.NewToolCallStart("tc1", "slow", "m1"))
	agent.Ingest("t1", event.NewToolCallArgs("tc1", `{}`))
	agent.Ingest("t1", event.NewToolCallEnd("tc1"))
	<-running

	core.Close()
	assert.True(t, finished.Load())
}

func TestAgent_Input(t *testing.T) {
	core := newCore(t)
	require.NoError(t, core.AddTool(weatherTool()))
	require.NoError(t, core.AddTool(tool.Tool{Name: "chart", AgentID: "bi"}))

	agent := core.Agent("weather")
	agent.Ingest("t1", event.NewTextMessageChunk("u1", "user", "Weather in Paris?"))

	input := agent.Input("t1", "run-2")
	assert.Equal(t, "t1", input.ThreadID)
	assert.Equal(t, "run-2", input.RunID)
	require.Len(t, input.Tools, 1)
	assert.Equal(t, "getWeather", input.Tools[0].Name)
	require.Len(t, input.Messages, 1)
}
