package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — один запуск flow.
//
// Execution монопольно принадлежит Engine на время выполнения:
// все переходы статусов делает только Engine, внешние читатели
// получают неизменяемые снимки через Snapshot().
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// FlowID — ссылка на flow, который выполняется.
	FlowID uuid.UUID `json:"flow_id"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// NodeRuns — состояние каждого узла (nodeID → NodeRun).
	NodeRuns map[string]*NodeRun `json:"node_runs"`

	// Error — текст ошибки, если execution завершился с FAILED.
	Error string `json:"error,omitempty"`

	// Cancelled — true, если FAILED вызван отменой пользователем.
	Cancelled bool `json:"cancelled,omitempty"`

	// CreatedAt — время создания execution.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время перехода в RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// EndedAt — время терминального перехода.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// DurationMs — полная продолжительность в миллисекундах.
	// Заполняется на терминальном переходе.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// NodeRun — запись о выполнении одного узла.
//
// Создаётся Engine при допуске execution; переходы статусов
// выполняет только Engine. Терминальна в SUCCEEDED/FAILED/SKIPPED.
type NodeRun struct {
	// NodeID — ID узла из FlowGraph.
	NodeID string `json:"node_id"`

	// AgentType — тип агента (копия NodeSpec.AgentType для удобства).
	AgentType string `json:"agent_type"`

	// Status — текущий статус узла.
	Status NodeStatus `json:"status"`

	// Output — непрозрачный результат агента.
	// Engine не интерпретирует содержимое, только передаёт потомкам.
	Output map[string]any `json:"output,omitempty"`

	// Error — текст ошибки при FAILED.
	Error string `json:"error,omitempty"`

	// SkipReason — причина SKIPPED.
	SkipReason SkipReason `json:"skip_reason,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// EndedAt — время завершения.
	EndedAt *time.Time `json:"ended_at,omitempty"`
}

// NewExecution создаёт execution в статусе PENDING
// с NodeRun в PENDING для каждого узла графа.
func NewExecution(flowID uuid.UUID, graph *FlowGraph) *Execution {
	runs := make(map[string]*NodeRun, len(graph.Nodes))
	for i := range graph.Nodes {
		n := &graph.Nodes[i]
		runs[n.ID] = &NodeRun{
			NodeID:    n.ID,
			AgentType: n.AgentType,
			Status:    NodeStatusPending,
		}
	}

	return &Execution{
		ID:        uuid.New(),
		FlowID:    flowID,
		Status:    ExecutionStatusPending,
		NodeRuns:  runs,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.EndedAt == nil {
		return 0
	}
	return e.EndedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если execution завершён.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// MarkCompleted переводит execution в статус COMPLETED.
func (e *Execution) MarkCompleted() {
	now := time.Now()
	e.Status = ExecutionStatusCompleted
	e.EndedAt = &now
	e.DurationMs = e.Duration().Milliseconds()
}

// MarkFailed переводит execution в статус FAILED с ошибкой.
func (e *Execution) MarkFailed(err string) {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.EndedAt = &now
	e.DurationMs = e.Duration().Milliseconds()
	e.Error = err
}

// MarkCancelled переводит execution в FAILED с маркером отмены.
func (e *Execution) MarkCancelled() {
	e.MarkFailed("execution cancelled by user")
	e.Cancelled = true
}

// MarkNodeRunning переводит узел в статус RUNNING.
func (r *NodeRun) MarkRunning() {
	now := time.Now()
	r.Status = NodeStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит узел в статус SUCCEEDED с результатом.
func (r *NodeRun) MarkSucceeded(output map[string]any) {
	now := time.Now()
	r.Status = NodeStatusSucceeded
	r.EndedAt = &now
	r.Output = output
}

// MarkFailed переводит узел в статус FAILED с ошибкой.
func (r *NodeRun) MarkFailed(err string) {
	now := time.Now()
	r.Status = NodeStatusFailed
	r.EndedAt = &now
	r.Error = err
}

// MarkSkipped переводит узел в статус SKIPPED.
// Допустимо только из PENDING.
func (r *NodeRun) MarkSkipped(reason SkipReason) {
	now := time.Now()
	r.Status = NodeStatusSkipped
	r.EndedAt = &now
	r.SkipReason = reason
}

// Snapshot возвращает глубокую копию execution.
//
// Снимок отдаётся внешним читателям (API, история), чтобы
// конкурентные изменения Engine не были видны наружу.
func (e *Execution) Snapshot() *Execution {
	cp := *e
	cp.NodeRuns = make(map[string]*NodeRun, len(e.NodeRuns))
	for id, r := range e.NodeRuns {
		rc := *r
		cp.NodeRuns[id] = &rc
	}
	return &cp
}
