package engine

import (
	"testing"

	"github.com/shaiso/Flowgrid/internal/domain"
)

func TestValidate_EmptyGraph(t *testing.T) {
	result := Validate(&domain.FlowGraph{})

	if result.IsValid() {
		t.Fatal("empty graph should not be valid")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("expected exactly 1 issue, got %d", len(result.Issues))
	}
	if result.Issues[0].Message != "flow must contain at least one node" {
		t.Errorf("unexpected message: %s", result.Issues[0].Message)
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "a", AgentType: "market_analysis"},
			{ID: "a", AgentType: "sentiment_analysis"},
			{ID: "b", AgentType: ""},
		},
		Edges: []domain.EdgeSpec{
			{SourceNodeID: "a", TargetNodeID: "missing"},
			{SourceNodeID: "b", TargetNodeID: "b"},
		},
	}

	result := Validate(graph)
	if result.IsValid() {
		t.Fatal("graph should not be valid")
	}

	// Дубликат id, пустой agent_type, ребро в несуществующий узел,
	// self-loop — все проблемы собраны за один проход.
	if len(result.Errors()) != 4 {
		for _, issue := range result.Issues {
			t.Logf("issue: [%s] %s", issue.Severity, issue.Message)
		}
		t.Fatalf("expected 4 errors, got %d", len(result.Errors()))
	}
}

func TestValidate_WarningsDoNotBlock(t *testing.T) {
	// Два несвязанных узла без config: только warnings.
	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "a", AgentType: "market_analysis"},
			{ID: "b", AgentType: "sentiment_analysis"},
		},
	}

	result := Validate(graph)
	if !result.IsValid() {
		t.Fatalf("graph with only warnings should be valid: %+v", result.Issues)
	}
	if len(result.Issues) == 0 {
		t.Error("expected warnings for unconnected nodes without config")
	}
	for _, issue := range result.Issues {
		if issue.Severity != SeverityWarning {
			t.Errorf("expected only warnings, got %s: %s", issue.Severity, issue.Message)
		}
	}
}

func TestValidate_SingleNodeNoConnectivityWarning(t *testing.T) {
	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "only", AgentType: "market_analysis", Config: map[string]any{"symbols": []any{"BTC"}}},
		},
	}

	result := Validate(graph)
	if !result.IsValid() {
		t.Fatalf("single node graph should be valid: %+v", result.Issues)
	}
	if len(result.Issues) != 0 {
		t.Errorf("single node should not warn about connectivity: %+v", result.Issues)
	}
}

func TestValidate_CycleIsNotAValidationError(t *testing.T) {
	// Циклы обнаруживаются при построении плана, не при валидации.
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

	result := Validate(graph)
	if !result.IsValid() {
		t.Fatalf("cycle should pass structural validation: %+v", result.Issues)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	// Повторная валидация того же графа даёт идентичный результат:
	// тот же набор проблем в том же порядке.
	graph := &domain.FlowGraph{
		Nodes: []domain.NodeSpec{
			{ID: "a", AgentType: "market_analysis"},
			{ID: "a", AgentType: "sentiment_analysis"},
			{ID: "b", AgentType: ""},
			{ID: "c", AgentType: "risk_assessment"},
		},
		Edges: []domain.EdgeSpec{
			{SourceNodeID: "a", TargetNodeID: "missing"},
			{SourceNodeID: "b", TargetNodeID: "b"},
		},
	}

	first := Validate(graph)
	second := Validate(graph)

	if len(first.Issues) != len(second.Issues) {
		t.Fatalf("issue count changed between runs: %d vs %d",
			len(first.Issues), len(second.Issues))
	}
	for i := range first.Issues {
		if first.Issues[i] != second.Issues[i] {
			t.Errorf("issue %d differs: %+v vs %+v", i, first.Issues[i], second.Issues[i])
		}
	}
}
