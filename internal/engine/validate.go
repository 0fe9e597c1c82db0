package engine

import (
	"fmt"

	"github.com/shaiso/Flowgrid/internal/domain"
)

// Severity — серьёзность замечания валидации.
type Severity string

const (
	// SeverityError — блокирует выполнение.
	SeverityError Severity = "error"

	// SeverityWarning — выполнение разрешено.
	SeverityWarning Severity = "warning"
)

// ValidationIssue — одно замечание валидации.
type ValidationIssue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
}

// ValidationResult — результат валидации графа.
//
// Собираются все замечания, а не только первое: клиент
// исправляет весь граф за один проход.
type ValidationResult struct {
	Issues []ValidationIssue `json:"issues"`
}

// IsValid возвращает true, если нет замечаний уровня error.
// Warnings не блокируют выполнение.
func (r ValidationResult) IsValid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors возвращает только замечания уровня error.
func (r ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Validate проверяет структурную корректность графа перед выполнением.
//
// Порядок проверок:
//  1. Пустой граф — одна ошибка, дальнейшие проверки бессмысленны.
//  2. Уникальность и непустота ID узлов, непустой agent_type.
//  3. Рёбра: оба конца существуют, нет петель (self-loop).
//  4. Узел без конфигурации — warning.
//  5. При >1 узле: узел, не тронутый ни одним ребром — warning
//     ("not connected"); независимые параллельные ветки легитимны,
//     поэтому это не ошибка.
//
// Циклы здесь намеренно НЕ ищутся: цикл имеет значение только
// в момент построения порядка выполнения и обнаруживается
// в BuildPlan. Валидация идемпотентна.
func Validate(graph *domain.FlowGraph) ValidationResult {
	var result ValidationResult

	if graph == nil || len(graph.Nodes) == 0 {
		result.Issues = append(result.Issues, ValidationIssue{
			Severity: SeverityError,
			Message:  "flow must contain at least one node",
		})
		return result
	}

	// Узлы: уникальные непустые ID, непустой agent_type.
	seen := make(map[string]bool, len(graph.Nodes))
	for i := range graph.Nodes {
		node := &graph.Nodes[i]

		if node.ID == "" {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Message:  "node has empty id",
			})
			continue
		}
		if seen[node.ID] {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("duplicate node id: %s", node.ID),
				NodeID:   node.ID,
			})
			continue
		}
		seen[node.ID] = true

		if node.AgentType == "" {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("node %s has empty agent_type", node.ID),
				NodeID:   node.ID,
			})
		}
	}

	// Рёбра: оба конца существуют, петли запрещены.
	for _, edge := range graph.Edges {
		if !seen[edge.SourceNodeID] {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge references unknown source node: %s", edge.SourceNodeID),
			})
		}
		if !seen[edge.TargetNodeID] {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge references unknown target node: %s", edge.TargetNodeID),
			})
		}
		if edge.SourceNodeID == edge.TargetNodeID {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("self-loop on node: %s", edge.SourceNodeID),
				NodeID:   edge.SourceNodeID,
			})
		}
	}

	// Узел без конфигурации — предупреждение.
	for i := range graph.Nodes {
		node := &graph.Nodes[i]
		if node.ID != "" && len(node.Config) == 0 {
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("node %s has no configuration", node.ID),
				NodeID:   node.ID,
			})
		}
	}

	// Несвязанные узлы — предупреждение (только при >1 узле).
	if len(graph.Nodes) > 1 {
		touched := make(map[string]bool, len(graph.Nodes))
		for _, edge := range graph.Edges {
			touched[edge.SourceNodeID] = true
			touched[edge.TargetNodeID] = true
		}
		for i := range graph.Nodes {
			node := &graph.Nodes[i]
			if node.ID != "" && !touched[node.ID] {
				result.Issues = append(result.Issues, ValidationIssue{
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("node %s is not connected", node.ID),
					NodeID:   node.ID,
				})
			}
		}
	}

	return result
}
