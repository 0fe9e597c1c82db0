package engine

import (
	"sort"

	"github.com/shaiso/Flowgrid/internal/domain"
)

// ExecutionPlan — порядок выполнения графа: последовательность слоёв.
//
// Слой — множество узлов без рёбер между собой; все зависимости
// узла лежат в строго более ранних слоях. План строится один раз
// на запуск и не изменяется.
type ExecutionPlan struct {
	// Layers — слои в порядке выполнения. Узлы внутри слоя
	// отсортированы по ID: планирование детерминировано
	// для одного и того же графа.
	Layers [][]string
}

// NodeCount возвращает общее количество узлов в плане.
func (p *ExecutionPlan) NodeCount() int {
	n := 0
	for _, layer := range p.Layers {
		n += len(layer)
	}
	return n
}

// LayerOf возвращает индекс слоя узла или -1.
func (p *ExecutionPlan) LayerOf(nodeID string) int {
	for i, layer := range p.Layers {
		for _, id := range layer {
			if id == nodeID {
				return i
			}
		}
	}
	return -1
}

// BuildPlan строит план выполнения послойным пилингом (алгоритм Кана).
//
// Считаем in-degree каждого узла; снимаем множество узлов с нулевым
// in-degree как очередной слой и уменьшаем in-degree их потомков.
// Если после исчерпания нулевых узлов остались неназначенные —
// это в точности участники цикла, возвращается *CycleError.
func BuildPlan(graph *domain.FlowGraph) (*ExecutionPlan, error) {
	inDegree := make(map[string]int, len(graph.Nodes))
	successors := make(map[string][]string, len(graph.Nodes))

	for i := range graph.Nodes {
		inDegree[graph.Nodes[i].ID] = 0
	}
	for _, edge := range graph.Edges {
		successors[edge.SourceNodeID] = append(successors[edge.SourceNodeID], edge.TargetNodeID)
		inDegree[edge.TargetNodeID]++
	}

	plan := &ExecutionPlan{}
	assigned := 0

	for assigned < len(graph.Nodes) {
		// Текущий слой: все узлы с нулевым in-degree.
		var layer []string
		for id, deg := range inDegree {
			if deg == 0 {
				layer = append(layer, id)
			}
		}

		if len(layer) == 0 {
			// Остаток — участники цикла.
			var residual []string
			for id := range inDegree {
				residual = append(residual, id)
			}
			sort.Strings(residual)
			return nil, &CycleError{NodeIDs: residual}
		}

		sort.Strings(layer)
		plan.Layers = append(plan.Layers, layer)
		assigned += len(layer)

		for _, id := range layer {
			delete(inDegree, id)
			for _, succ := range successors[id] {
				if _, ok := inDegree[succ]; ok {
					inDegree[succ]--
				}
			}
		}
	}

	return plan, nil
}
