package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/agent"
	"github.com/shaiso/Flowgrid/internal/domain"
	"github.com/shaiso/Flowgrid/internal/telemetry"
)

// Default configuration values.
const (
	defaultMaxConcurrency = 4
	historyTimeout        = 10 * time.Second
)

// EventPublisher — приёмник событий выполнения (Event Hub).
// Register заводит поток событий execution при допуске, Publish
// присваивает событию порядковый номер и время. Register до первого
// Publish гарантирует, что ранний подписчик найдёт поток.
type EventPublisher interface {
	Register(executionID uuid.UUID)
	Publish(ev *domain.Event)
}

// HistoryStore — хранилище терминальных снимков executions.
//
// Append вызывается один раз на execution после терминального
// перехода. Ошибка записи логируется и не меняет уже доставленный
// наблюдателям исход: статус в памяти авторитетен.
type HistoryStore interface {
	Append(ctx context.Context, exec *domain.Execution) error
}

// Engine управляет жизненным циклом executions.
//
// Engine — единственный владелец изменяемого состояния execution:
//   - Валидирует граф и строит план выполнения
//   - Выполняет слои плана по порядку; узлы внутри слоя — конкурентно,
//     с ограничением MaxConcurrency
//   - Ждёт терминального статуса каждого узла слоя перед следующим
//     слоем (слой-барьер)
//   - Распространяет падение узла как SKIPPED на транзитивных потомков,
//     не трогая независимые ветки
//   - Публикует события в hub и отдаёт терминальный снимок в историю
//
// Выполнение разных executions полностью независимо.
type Engine struct {
	executor *NodeExecutor
	events   EventPublisher
	history  HistoryStore

	maxConcurrency int

	mu     sync.RWMutex
	active map[uuid.UUID]*execState

	logger *slog.Logger
	wg     sync.WaitGroup
}

// Config — конфигурация Engine.
type Config struct {
	// Registry — реестр агентов.
	Registry *agent.Registry

	// Events — приёмник событий (обязателен).
	Events EventPublisher

	// History — хранилище терминальных снимков (опционально).
	History HistoryStore

	// MaxConcurrency — максимум одновременно выполняющихся узлов
	// в одном слое (default: 4).
	MaxConcurrency int

	// NodeTimeout — таймаут узла, если timeout_sec не задан
	// в конфигурации (default: 5m).
	NodeTimeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = agent.NewDefaultRegistry()
	}

	return &Engine{
		executor:       NewNodeExecutor(registry, cfg.NodeTimeout),
		events:         cfg.Events,
		history:        cfg.History,
		maxConcurrency: maxConcurrency,
		active:         make(map[uuid.UUID]*execState),
		logger:         logger,
	}
}

// Start допускает граф к выполнению.
//
// Возвращает execution в статусе RUNNING; сами узлы выполняются
// в фоновой горутине-драйвере. Ошибки:
//   - *ValidationFailedError — граф не прошёл валидацию (полный список)
//   - *CycleError — граф содержит цикл
func (e *Engine) Start(ctx context.Context, flowID uuid.UUID, graph *domain.FlowGraph) (*domain.Execution, error) {
	result := Validate(graph)
	if !result.IsValid() {
		return nil, &ValidationFailedError{Result: result}
	}

	plan, err := BuildPlan(graph)
	if err != nil {
		return nil, err
	}

	exec := domain.NewExecution(flowID, graph)

	runCtx, cancel := context.WithCancel(context.Background())
	state := newExecState(exec, graph, plan, cancel)

	if err := e.admit(state); err != nil {
		cancel()
		return nil, err
	}

	// Поток событий существует с момента допуска: подписка между
	// Start и первым событием не получает "unknown execution".
	e.events.Register(exec.ID)

	// PENDING → RUNNING сразу после допуска.
	state.mu.Lock()
	exec.MarkRunning()
	state.mu.Unlock()

	telemetry.ExecutionsStarted.Inc()
	e.logger.Info("execution started",
		"execution_id", exec.ID,
		"flow_id", flowID,
		"nodes", len(graph.Nodes),
		"layers", len(plan.Layers),
	)

	e.wg.Add(1)
	go e.run(runCtx, state)

	return state.Snapshot(), nil
}

// admit регистрирует execution среди активных.
// Повторный допуск того же ID — ошибка ErrInvalidState.
func (e *Engine) admit(state *execState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := state.exec.ID
	if _, exists := e.active[id]; exists {
		return fmt.Errorf("%w: execution %s already started", ErrInvalidState, id)
	}
	e.active[id] = state
	return nil
}

// Snapshot возвращает снимок активного execution.
func (e *Engine) Snapshot(executionID uuid.UUID) (*domain.Execution, error) {
	e.mu.RLock()
	state, ok := e.active[executionID]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	return state.Snapshot(), nil
}

// Cancel запрашивает отмену выполняющегося execution.
//
// Выполняющиеся узлы останавливаются кооперативно (через ctx);
// не начатые узлы будут помечены SKIPPED с причиной CANCELLED;
// терминальный статус — FAILED с маркером отмены.
func (e *Engine) Cancel(executionID uuid.UUID) error {
	e.mu.RLock()
	state, ok := e.active[executionID]
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}

	e.logger.Info("cancellation requested", "execution_id", executionID)
	state.requestCancel()
	return nil
}

// ActiveCount возвращает количество выполняющихся executions.
func (e *Engine) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}

// Stop отменяет все активные executions и ждёт завершения драйверов.
func (e *Engine) Stop() {
	e.mu.RLock()
	for _, state := range e.active {
		state.requestCancel()
	}
	e.mu.RUnlock()

	e.wg.Wait()
	e.logger.Info("engine stopped")
}

// run — горутина-драйвер одного execution.
//
// Обходит слои плана по порядку; внутри слоя узлы выполняются
// конкурентно с ограничением maxConcurrency. Барьер слоя: следующий
// слой не начинается, пока каждый узел текущего не терминален, —
// один медленный узел задерживает весь слой, потому что любой узел
// следующего слоя может зависеть от любого его соседа.
func (e *Engine) run(ctx context.Context, state *execState) {
	defer e.wg.Done()

	for _, layer := range state.plan.Layers {
		var runnable []string
		for _, nodeID := range layer {
			switch {
			case state.isCancelRequested():
				state.markNodeSkipped(nodeID, domain.SkipReasonCancelled)
				telemetry.NodeRuns.WithLabelValues(string(domain.NodeStatusSkipped)).Inc()
			case state.shouldSkip(nodeID):
				state.markNodeSkipped(nodeID, domain.SkipReasonUpstreamFailed)
				telemetry.NodeRuns.WithLabelValues(string(domain.NodeStatusSkipped)).Inc()
			default:
				runnable = append(runnable, nodeID)
			}
		}

		sem := make(chan struct{}, e.maxConcurrency)
		var wg sync.WaitGroup

		for _, nodeID := range runnable {
			wg.Add(1)
			sem <- struct{}{}

			go func(id string) {
				defer wg.Done()
				defer func() { <-sem }()
				e.runNode(ctx, state, id)
			}(nodeID)
		}

		// Барьер слоя.
		wg.Wait()
	}

	e.finish(state)
}

// runNode выполняет один узел и публикует его события.
func (e *Engine) runNode(ctx context.Context, state *execState, nodeID string) {
	node := state.graph.Node(nodeID)

	state.markNodeRunning(nodeID)
	e.publish(state, &domain.Event{
		Kind:    domain.EventNodeStarted,
		NodeID:  nodeID,
		Status:  string(domain.NodeStatusRunning),
		Message: fmt.Sprintf("node %s (%s) started", nodeID, node.AgentType),
	})

	// Строки лога агента превращаются в node_log события.
	nodeCtx := agent.WithLogSink(ctx, func(level, message string) {
		e.publish(state, &domain.Event{
			Kind:    domain.EventNodeLog,
			NodeID:  nodeID,
			Level:   level,
			Message: message,
		})
	})

	inputs := state.collectInputs(nodeID)

	start := time.Now()
	output, err := e.executor.Run(nodeCtx, node, inputs)
	elapsed := time.Since(start)

	telemetry.NodeDuration.WithLabelValues(node.AgentType).Observe(elapsed.Seconds())

	if err != nil {
		state.markNodeFailed(nodeID, err.Error())
		telemetry.NodeRuns.WithLabelValues(string(domain.NodeStatusFailed)).Inc()

		e.logger.Warn("node failed",
			"execution_id", state.exec.ID,
			"node_id", nodeID,
			"agent_type", node.AgentType,
			"error", err,
		)
		e.publish(state, &domain.Event{
			Kind:    domain.EventNodeFailed,
			NodeID:  nodeID,
			Status:  string(domain.NodeStatusFailed),
			Message: err.Error(),
		})
		return
	}

	state.markNodeSucceeded(nodeID, output)
	telemetry.NodeRuns.WithLabelValues(string(domain.NodeStatusSucceeded)).Inc()

	e.publish(state, &domain.Event{
		Kind:    domain.EventNodeCompleted,
		NodeID:  nodeID,
		Status:  string(domain.NodeStatusSucceeded),
		Message: fmt.Sprintf("node %s completed in %dms", nodeID, elapsed.Milliseconds()),
		Payload: output,
	})
}

// finish переводит execution в терминальный статус, публикует
// терминальное событие и отдаёт снимок в историю.
func (e *Engine) finish(state *execState) {
	failed := state.failedNodes()
	cancelled := state.isCancelRequested()
	state.finalize(failed, cancelled)

	snap := state.Snapshot()
	telemetry.ExecutionsFinished.WithLabelValues(string(snap.Status)).Inc()

	if snap.Status == domain.ExecutionStatusCompleted {
		e.publish(state, &domain.Event{
			Kind:    domain.EventExecutionCompleted,
			Status:  string(snap.Status),
			Message: fmt.Sprintf("execution completed in %dms", snap.DurationMs),
		})
	} else {
		e.publish(state, &domain.Event{
			Kind:    domain.EventExecutionFailed,
			Status:  string(snap.Status),
			Message: snap.Error,
		})
	}

	e.logger.Info("execution finished",
		"execution_id", snap.ID,
		"status", snap.Status,
		"duration_ms", snap.DurationMs,
		"failed_nodes", len(failed),
	)

	// Снимок в историю. Ошибка записи логируется и не меняет
	// исход, уже доставленный наблюдателям.
	if e.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()

		if err := e.history.Append(ctx, snap); err != nil {
			e.logger.Error("failed to append execution to history",
				"execution_id", snap.ID,
				"error", err,
			)
		}
	}

	e.mu.Lock()
	delete(e.active, snap.ID)
	e.mu.Unlock()
}

// publish отправляет событие в hub, проставляя ExecutionID.
func (e *Engine) publish(state *execState, ev *domain.Event) {
	ev.ExecutionID = state.exec.ID
	e.events.Publish(ev)
}
