package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/shaiso/Flowgrid/internal/domain"
)

// execState — состояние одного активного execution в памяти.
//
// Создаётся в Start и живёт до терминального перехода.
// Единственный логический писатель — горутина-драйвер execution;
// конкурентные читатели (API snapshot, отмена) защищены мьютексом.
type execState struct {
	mu sync.RWMutex

	exec  *domain.Execution
	graph *domain.FlowGraph
	plan  *ExecutionPlan

	// cancelFunc отменяет контексты всех выполняющихся узлов.
	cancelFunc context.CancelFunc

	// cancelRequested выставляется в Cancel и читается драйвером
	// перед допуском каждого следующего узла.
	cancelRequested bool
}

func newExecState(exec *domain.Execution, graph *domain.FlowGraph, plan *ExecutionPlan, cancel context.CancelFunc) *execState {
	return &execState{
		exec:       exec,
		graph:      graph,
		plan:       plan,
		cancelFunc: cancel,
	}
}

// Snapshot возвращает неизменяемую копию execution.
func (s *execState) Snapshot() *domain.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exec.Snapshot()
}

// requestCancel помечает execution отменённым и обрывает контексты узлов.
func (s *execState) requestCancel() {
	s.mu.Lock()
	s.cancelRequested = true
	s.mu.Unlock()

	s.cancelFunc()
}

// isCancelRequested проверяет, запрошена ли отмена.
func (s *execState) isCancelRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelRequested
}

// shouldSkip решает, должен ли узел быть пропущен из-за падения предка.
//
// Прямые предки к моменту вызова всегда терминальны (слой-барьер):
// узел пропускается, если предок упал либо сам был пропущен из-за
// падения выше по цепочке — так Skipped распространяется транзитивно
// на всех потомков, не задевая независимые ветки.
func (s *execState) shouldSkip(nodeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, predID := range s.graph.Predecessors(nodeID) {
		pred := s.exec.NodeRuns[predID]
		if pred == nil {
			continue
		}
		if pred.Status == domain.NodeStatusFailed {
			return true
		}
		if pred.Status == domain.NodeStatusSkipped && pred.SkipReason == domain.SkipReasonUpstreamFailed {
			return true
		}
	}
	return false
}

// collectInputs собирает outputs прямых предков узла по ID источника.
func (s *execState) collectInputs(nodeID string) map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inputs := make(map[string]map[string]any)
	for _, predID := range s.graph.Predecessors(nodeID) {
		pred := s.exec.NodeRuns[predID]
		if pred != nil && pred.Status == domain.NodeStatusSucceeded {
			inputs[predID] = pred.Output
		}
	}
	return inputs
}

// markNodeRunning переводит узел в RUNNING.
func (s *execState) markNodeRunning(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exec.NodeRuns[nodeID].MarkRunning()
}

// markNodeSucceeded переводит узел в SUCCEEDED с результатом.
func (s *execState) markNodeSucceeded(nodeID string, output map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exec.NodeRuns[nodeID].MarkSucceeded(output)
}

// markNodeFailed переводит узел в FAILED с ошибкой.
func (s *execState) markNodeFailed(nodeID string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exec.NodeRuns[nodeID].MarkFailed(errMsg)
}

// markNodeSkipped переводит узел в SKIPPED.
func (s *execState) markNodeSkipped(nodeID string, reason domain.SkipReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exec.NodeRuns[nodeID].MarkSkipped(reason)
}

// failedNodes возвращает отсортированный по плану список упавших узлов.
func (s *execState) failedNodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var failed []string
	for _, layer := range s.plan.Layers {
		for _, id := range layer {
			if s.exec.NodeRuns[id].Status == domain.NodeStatusFailed {
				failed = append(failed, id)
			}
		}
	}
	return failed
}

// finalize переводит execution в терминальный статус.
func (s *execState) finalize(failed []string, cancelled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case cancelled:
		s.exec.MarkCancelled()
	case len(failed) > 0:
		s.exec.MarkFailed("failed nodes: " + strings.Join(failed, ", "))
	default:
		s.exec.MarkCompleted()
	}
}
