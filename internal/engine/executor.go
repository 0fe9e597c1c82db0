package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Flowgrid/internal/agent"
	"github.com/shaiso/Flowgrid/internal/domain"
)

// defaultNodeTimeout — таймаут узла, если timeout_sec не задан в конфигурации.
const defaultNodeTimeout = 5 * time.Minute

// NodeExecutor выполняет один узел графа.
//
// Разрешает handler по agent_type через Registry, выставляет таймаут
// (из конфигурации узла либо дефолт engine) и вызывает агента
// с outputs прямых предков. Не знает ничего о слоях и порядке —
// этим занимается Engine.
type NodeExecutor struct {
	registry       *agent.Registry
	defaultTimeout time.Duration
}

// NewNodeExecutor создаёт NodeExecutor.
// Если defaultTimeout <= 0, используется 5 минут.
func NewNodeExecutor(registry *agent.Registry, defaultTimeout time.Duration) *NodeExecutor {
	if defaultTimeout <= 0 {
		defaultTimeout = defaultNodeTimeout
	}
	return &NodeExecutor{
		registry:       registry,
		defaultTimeout: defaultTimeout,
	}
}

// invokeResult — результат вызова агента для передачи через канал.
type invokeResult struct {
	output map[string]any
	err    error
}

// Run выполняет узел и возвращает его output.
//
// Ошибки:
//   - agent.ErrNotFound — нет handler для agent_type
//   - ErrNodeTimeout — истёк таймаут узла
//   - context.Canceled — execution отменён
//   - *agent.Error и прочие — предметная ошибка агента
func (x *NodeExecutor) Run(ctx context.Context, node *domain.NodeSpec, inputs map[string]map[string]any) (map[string]any, error) {
	handler, err := x.registry.Resolve(node.AgentType)
	if err != nil {
		return nil, err
	}

	timeout := x.defaultTimeout
	if sec := node.TimeoutSec(); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Агент выполняется в отдельной горутине: даже если handler
	// игнорирует ctx, Run вернётся по дедлайну. Сама горутина
	// в этом случае доработает в фоне — принудительного убийства нет.
	done := make(chan invokeResult, 1)
	go func() {
		output, err := handler.Invoke(runCtx, node.Config, inputs)
		done <- invokeResult{output: output, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.output, nil

	case <-runCtx.Done():
		if ctx.Err() != nil {
			// Отмена пришла снаружи, а не от таймера узла.
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: node %s exceeded %s", ErrNodeTimeout, node.ID, timeout)
	}
}
