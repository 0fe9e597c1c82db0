package domain

import (
	"time"

	"github.com/google/uuid"
)

// Flow — сохранённое определение графа агентов.
//
// Flow создаётся визуальным редактором и хранит граф (nodes + edges)
// в виде JSON документа. Каждый запуск (Execution) выполняет
// снимок этого графа.
type Flow struct {
	// ID — уникальный идентификатор flow.
	ID uuid.UUID `json:"id"`

	// Name — имя flow (например, "btc-momentum", "portfolio-rebalance").
	Name string `json:"name"`

	// Description — описание назначения flow.
	Description string `json:"description,omitempty"`

	// Definition — граф узлов и рёбер.
	Definition FlowGraph `json:"definition"`

	// Tags — произвольные теги ("trading", "risk-management").
	Tags []string `json:"tags,omitempty"`

	// CreatedAt — время создания flow.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// FlowGraph — неизменяемый снимок графа, передаваемый на выполнение.
//
// Engine никогда не выполняет граф, не прошедший валидацию.
type FlowGraph struct {
	// Nodes — узлы графа.
	Nodes []NodeSpec `json:"nodes"`

	// Edges — рёбра (зависимости между узлами).
	Edges []EdgeSpec `json:"edges"`
}

// NodeSpec — описание одного узла графа.
type NodeSpec struct {
	// ID — уникальный идентификатор узла в рамках графа.
	ID string `json:"id"`

	// AgentType — тип агента: "trading", "risk", "sentiment", ...
	// Разрешается через agent.Registry.
	AgentType string `json:"agent_type"`

	// Config — конфигурация узла (зависит от типа агента).
	// Для trading: symbol, strategy, timeframe
	// Для risk: max_position_size, stop_loss_pct
	// Специальный ключ timeout_sec переопределяет таймаут engine.
	Config map[string]any `json:"config,omitempty"`
}

// EdgeSpec — направленное ребро source → target.
//
// Означает, что target получает на вход output узла source
// и не может начать выполнение раньше его завершения.
type EdgeSpec struct {
	// SourceNodeID — узел-источник.
	SourceNodeID string `json:"source"`

	// TargetNodeID — узел-приёмник.
	TargetNodeID string `json:"target"`
}

// Node возвращает узел по ID или nil.
func (g *FlowGraph) Node(id string) *NodeSpec {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Predecessors возвращает ID узлов, от которых зависит node (входящие рёбра).
func (g *FlowGraph) Predecessors(nodeID string) []string {
	var preds []string
	for _, e := range g.Edges {
		if e.TargetNodeID == nodeID {
			preds = append(preds, e.SourceNodeID)
		}
	}
	return preds
}

// Successors возвращает ID узлов, зависящих от node (исходящие рёбра).
func (g *FlowGraph) Successors(nodeID string) []string {
	var succs []string
	for _, e := range g.Edges {
		if e.SourceNodeID == nodeID {
			succs = append(succs, e.TargetNodeID)
		}
	}
	return succs
}

// TimeoutSec извлекает таймаут узла из конфигурации.
// Возвращает 0, если таймаут не задан или некорректен.
func (n *NodeSpec) TimeoutSec() int {
	v, ok := n.Config["timeout_sec"]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int:
		return t
	case float64:
		// JSON числа декодируются в float64
		return int(t)
	default:
		return 0
	}
}
