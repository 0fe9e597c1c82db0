package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/Flowgrid/internal/domain"
)

func graphOf(nodes []string, edges [][2]string) *domain.FlowGraph {
	g := &domain.FlowGraph{}
	for _, id := range nodes {
		g.Nodes = append(g.Nodes, domain.NodeSpec{ID: id, AgentType: "market_analysis"})
	}
	for _, e := range edges {
		g.Edges = append(g.Edges, domain.EdgeSpec{SourceNodeID: e[0], TargetNodeID: e[1]})
	}
	return g
}

func TestBuildPlan_Diamond(t *testing.T) {
	// a → b → d
	// a → c → d
	graph := graphOf(
		[]string{"d", "c", "b", "a"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
	)

	plan, err := BuildPlan(graph)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]string{{"a"}, {"b", "c"}, {"d"}}
	if !reflect.DeepEqual(plan.Layers, want) {
		t.Errorf("expected layers %v, got %v", want, plan.Layers)
	}
	if plan.NodeCount() != 4 {
		t.Errorf("expected 4 nodes in plan, got %d", plan.NodeCount())
	}
}

func TestBuildPlan_EdgesRespectLayerOrder(t *testing.T) {
	graph := graphOf(
		[]string{"a", "b", "c", "d", "e"},
		[][2]string{{"a", "c"}, {"b", "c"}, {"c", "d"}, {"b", "e"}},
	)

	plan, err := BuildPlan(graph)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Для каждого ребра слой источника строго меньше слоя цели.
	for _, edge := range graph.Edges {
		src := plan.LayerOf(edge.SourceNodeID)
		dst := plan.LayerOf(edge.TargetNodeID)
		if src >= dst {
			t.Errorf("edge %s→%s violates layer order: %d >= %d",
				edge.SourceNodeID, edge.TargetNodeID, src, dst)
		}
	}
}

func TestBuildPlan_NoDependencies(t *testing.T) {
	graph := graphOf([]string{"c", "a", "b"}, nil)

	plan, err := BuildPlan(graph)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Один слой, id отсортированы для детерминизма.
	want := [][]string{{"a", "b", "c"}}
	if !reflect.DeepEqual(plan.Layers, want) {
		t.Errorf("expected layers %v, got %v", want, plan.Layers)
	}
}

func TestBuildPlan_Deterministic(t *testing.T) {
	graph := graphOf(
		[]string{"z", "m", "a", "k"},
		[][2]string{{"a", "m"}, {"a", "z"}, {"a", "k"}},
	)

	first, err := BuildPlan(graph)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 10; i++ {
		plan, err := BuildPlan(graph)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(plan.Layers, first.Layers) {
			t.Fatalf("plan is not deterministic: %v vs %v", plan.Layers, first.Layers)
		}
	}
}

func TestBuildPlan_Cycle(t *testing.T) {
	// a → b → c → b, плюс независимый d.
	graph := graphOf(
		[]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "b"}},
	)

	_, err := BuildPlan(graph)
	if err == nil {
		t.Fatal("expected cycle error")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}

	// Остаток после снятия достижимых узлов: участники цикла.
	want := []string{"b", "c"}
	if !reflect.DeepEqual(cycleErr.NodeIDs, want) {
		t.Errorf("expected cycle nodes %v, got %v", want, cycleErr.NodeIDs)
	}
}

func TestBuildPlan_SelfLoop(t *testing.T) {
	graph := graphOf([]string{"a"}, [][2]string{{"a", "a"}})

	_, err := BuildPlan(graph)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if !reflect.DeepEqual(cycleErr.NodeIDs, []string{"a"}) {
		t.Errorf("expected cycle nodes [a], got %v", cycleErr.NodeIDs)
	}
}
