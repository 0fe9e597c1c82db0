package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/agent"
	"github.com/shaiso/Flowgrid/internal/domain"
)

// eventRecorder собирает опубликованные события в порядке публикации.
type eventRecorder struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (r *eventRecorder) Register(uuid.UUID) {}

func (r *eventRecorder) Publish(ev *domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *eventRecorder) byKind(kind domain.EventKind) []*domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// chanHistory отдаёт терминальный снимок в канал, чтобы тест мог
// дождаться завершения execution.
type chanHistory struct {
	ch chan *domain.Execution
}

func newChanHistory() *chanHistory {
	return &chanHistory{ch: make(chan *domain.Execution, 1)}
}

func (h *chanHistory) Append(_ context.Context, exec *domain.Execution) error {
	h.ch <- exec
	return nil
}

func (h *chanHistory) wait(t *testing.T) *domain.Execution {
	t.Helper()
	select {
	case exec := <-h.ch:
		return exec
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for execution to finish")
		return nil
	}
}

func testRegistry(t *testing.T, handlers map[string]agent.HandlerFunc) *agent.Registry {
	t.Helper()
	registry := agent.NewRegistry()
	for agentType, fn := range handlers {
		registry.Register(agent.Info{Type: agentType}, fn)
	}
	return registry
}

func okHandler(output map[string]any) agent.HandlerFunc {
	return func(_ context.Context, _ map[string]any, _ map[string]map[string]any) (map[string]any, error) {
		return output, nil
	}
}

func TestEngine_LinearFlowCompletes(t *testing.T) {
	recorder := &eventRecorder{}
	history := newChanHistory()

	registry := testRegistry(t, map[string]agent.HandlerFunc{
		"alpha": okHandler(map[string]any{"v": 1}),
		"beta":  okHandler(map[string]any{"v": 2}),
		"gamma": okHandler(map[string]any{"v": 3}),
	})

	eng := New(Config{Registry: registry, Events: recorder, History: history})

	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "a", AgentType: "alpha"},
			{ID: "b", AgentType: "beta"},
			{ID: "c", AgentType: "gamma"},
		},
		Edges: []domain.EdgeSpec{
			{SourceNodeID: "a", TargetNodeID: "b"},
			{SourceNodeID: "b", TargetNodeID: "c"},
		},
	}

	exec, err := eng.Start(context.Background(), uuid.New(), graph)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Status != domain.ExecutionStatusRunning {
		t.Errorf("expected RUNNING after Start, got %s", exec.Status)
	}

	final := history.wait(t)
	if final.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (error: %s)", final.Status, final.Error)
	}
	for _, run := range final.NodeRuns {
		if run.Status != domain.NodeStatusSucceeded {
			t.Errorf("node %s: expected SUCCEEDED, got %s", run.NodeID, run.Status)
		}
	}

	// Для линейного flow порядок событий полностью детерминирован.
	wantKinds := []domain.EventKind{
		domain.EventNodeStarted, domain.EventNodeCompleted,
		domain.EventNodeStarted, domain.EventNodeCompleted,
		domain.EventNodeStarted, domain.EventNodeCompleted,
		domain.EventExecutionCompleted,
	}
	got := recorder.kinds()
	if len(got) != len(wantKinds) {
		t.Fatalf("expected %d events, got %d: %v", len(wantKinds), len(got), got)
	}
	for i, kind := range wantKinds {
		if got[i] != kind {
			t.Errorf("event %d: expected %s, got %s", i, kind, got[i])
		}
	}
}

func TestEngine_FailurePropagation(t *testing.T) {
	// a → b → c падает в начале цепочки; d независим.
	recorder := &eventRecorder{}
	history := newChanHistory()

	registry := testRegistry(t, map[string]agent.HandlerFunc{
		"broken": func(_ context.Context, _ map[string]any, _ map[string]map[string]any) (map[string]any, error) {
			return nil, errors.New("upstream data unavailable")
		},
		"ok": okHandler(map[string]any{"v": 1}),
	})

	eng := New(Config{Registry: registry, Events: recorder, History: history})

	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "a", AgentType: "broken"},
			{ID: "b", AgentType: "ok"},
			{ID: "c", AgentType: "ok"},
			{ID: "d", AgentType: "ok"},
		},
		Edges: []domain.EdgeSpec{
			{SourceNodeID: "a", TargetNodeID: "b"},
			{SourceNodeID: "b", TargetNodeID: "c"},
		},
	}

	if _, err := eng.Start(context.Background(), uuid.New(), graph); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final := history.wait(t)
	if final.Status != domain.ExecutionStatusFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	if final.Error != "failed nodes: a" {
		t.Errorf("unexpected execution error: %q", final.Error)
	}

	checks := map[string]struct {
		status domain.NodeStatus
		reason domain.SkipReason
	}{
		"a": {status: domain.NodeStatusFailed},
		"b": {status: domain.NodeStatusSkipped, reason: domain.SkipReasonUpstreamFailed},
		"c": {status: domain.NodeStatusSkipped, reason: domain.SkipReasonUpstreamFailed},
		"d": {status: domain.NodeStatusSucceeded},
	}
	for id, want := range checks {
		run := final.NodeRuns[id]
		if run.Status != want.status {
			t.Errorf("node %s: expected %s, got %s", id, want.status, run.Status)
		}
		if run.SkipReason != want.reason {
			t.Errorf("node %s: expected skip reason %q, got %q", id, want.reason, run.SkipReason)
		}
	}

	// Skipped узлы не порождают событий.
	started := recorder.byKind(domain.EventNodeStarted)
	if len(started) != 2 {
		t.Errorf("expected 2 node_started events (a, d), got %d", len(started))
	}
}

func TestEngine_InputsFromPredecessors(t *testing.T) {
	recorder := &eventRecorder{}
	history := newChanHistory()

	var gotInputs map[string]map[string]any
	var mu sync.Mutex

	registry := testRegistry(t, map[string]agent.HandlerFunc{
		"source": okHandler(map[string]any{"signal": "BUY"}),
		"sink": func(_ context.Context, _ map[string]any, inputs map[string]map[string]any) (map[string]any, error) {
			mu.Lock()
			gotInputs = inputs
			mu.Unlock()
			return map[string]any{}, nil
		},
	})

	eng := New(Config{Registry: registry, Events: recorder, History: history})

	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "up", AgentType: "source"},
			{ID: "down", AgentType: "sink"},
		},
		Edges: []domain.EdgeSpec{{SourceNodeID: "up", TargetNodeID: "down"}},
	}

	if _, err := eng.Start(context.Background(), uuid.New(), graph); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history.wait(t)

	mu.Lock()
	defer mu.Unlock()
	upstream, ok := gotInputs["up"]
	if !ok {
		t.Fatalf("expected inputs keyed by predecessor id, got %v", gotInputs)
	}
	if upstream["signal"] != "BUY" {
		t.Errorf("expected upstream signal BUY, got %v", upstream["signal"])
	}
}

func TestEngine_NodeTimeout(t *testing.T) {
	recorder := &eventRecorder{}
	history := newChanHistory()

	registry := testRegistry(t, map[string]agent.HandlerFunc{
		"slow": func(ctx context.Context, _ map[string]any, _ map[string]map[string]any) (map[string]any, error) {
			select {
			case <-time.After(5 * time.Second):
				return map[string]any{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})

	eng := New(Config{
		Registry:    registry,
		Events:      recorder,
		History:     history,
		NodeTimeout: 50 * time.Millisecond,
	})

	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{{ID: "s", AgentType: "slow"}},
	}

	if _, err := eng.Start(context.Background(), uuid.New(), graph); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final := history.wait(t)
	if final.Status != domain.ExecutionStatusFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	run := final.NodeRuns["s"]
	if run.Status != domain.NodeStatusFailed {
		t.Fatalf("expected node FAILED, got %s", run.Status)
	}
	if !strings.Contains(run.Error, "exceeded") {
		t.Errorf("expected timeout error, got %q", run.Error)
	}
}

func TestEngine_Cancel(t *testing.T) {
	recorder := &eventRecorder{}
	history := newChanHistory()

	running := make(chan struct{})

	registry := testRegistry(t, map[string]agent.HandlerFunc{
		"blocking": func(ctx context.Context, _ map[string]any, _ map[string]map[string]any) (map[string]any, error) {
			close(running)
			<-ctx.Done()
			return nil, ctx.Err()
		},
		"ok": okHandler(map[string]any{}),
	})

	eng := New(Config{Registry: registry, Events: recorder, History: history})

	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "a", AgentType: "blocking"},
			{ID: "b", AgentType: "ok"},
		},
		Edges: []domain.EdgeSpec{{SourceNodeID: "a", TargetNodeID: "b"}},
	}

	exec, err := eng.Start(context.Background(), uuid.New(), graph)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-running
	if err := eng.Cancel(exec.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	final := history.wait(t)
	if final.Status != domain.ExecutionStatusFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	if !final.Cancelled {
		t.Error("expected Cancelled flag to be set")
	}

	if got := final.NodeRuns["a"].Status; got != domain.NodeStatusFailed {
		t.Errorf("in-flight node: expected FAILED, got %s", got)
	}
	bRun := final.NodeRuns["b"]
	if bRun.Status != domain.NodeStatusSkipped {
		t.Errorf("pending node: expected SKIPPED, got %s", bRun.Status)
	}
	if bRun.SkipReason != domain.SkipReasonCancelled {
		t.Errorf("expected skip reason CANCELLED, got %q", bRun.SkipReason)
	}
}

func TestEngine_CancelUnknownExecution(t *testing.T) {
	eng := New(Config{Events: &eventRecorder{}})

	err := eng.Cancel(uuid.New())
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("expected ErrExecutionNotFound, got %v", err)
	}
}

func TestEngine_StartRejectsInvalidGraph(t *testing.T) {
	eng := New(Config{Events: &eventRecorder{}})

	_, err := eng.Start(context.Background(), uuid.New(), &domain.FlowGraph{})
	var vErr *ValidationFailedError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationFailedError, got %v", err)
	}
}

func TestEngine_StartRejectsCycle(t *testing.T) {
	eng := New(Config{Events: &eventRecorder{}})

	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "a", AgentType: "market_analysis", Config: map[string]any{"x": 1}},
			{ID: "b", AgentType: "sentiment_analysis", Config: map[string]any{"x": 1}},
		},
		Edges: []domain.EdgeSpec{
			{SourceNodeID: "a", TargetNodeID: "b"},
			{SourceNodeID: "b", TargetNodeID: "a"},
		},
	}

	_, err := eng.Start(context.Background(), uuid.New(), graph)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
}

func TestEngine_NodeLogBecomesEvent(t *testing.T) {
	recorder := &eventRecorder{}
	history := newChanHistory()

	registry := testRegistry(t, map[string]agent.HandlerFunc{
		"chatty": func(ctx context.Context, _ map[string]any, _ map[string]map[string]any) (map[string]any, error) {
			agent.Logf(ctx, "info", "fetched %d candles", 120)
			return map[string]any{}, nil
		},
	})

	eng := New(Config{Registry: registry, Events: recorder, History: history})

	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{{ID: "n", AgentType: "chatty"}},
	}

	if _, err := eng.Start(context.Background(), uuid.New(), graph); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history.wait(t)

	logs := recorder.byKind(domain.EventNodeLog)
	if len(logs) != 1 {
		t.Fatalf("expected 1 node_log event, got %d", len(logs))
	}
	if logs[0].Message != "fetched 120 candles" || logs[0].Level != "info" {
		t.Errorf("unexpected log event: %+v", logs[0])
	}
}
