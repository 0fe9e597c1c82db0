package domain

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
//
// COMPLETED и FAILED — терминальные, дальнейших переходов нет.
// Отмена пользователем завершает execution в FAILED с маркером отмены.
type ExecutionStatus string

const (
	// ExecutionStatusPending — execution создан, но ещё не начал выполняться.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusRunning — execution в процессе выполнения.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusCompleted — все узлы завершились без ошибок.
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"

	// ExecutionStatusFailed — хотя бы один узел упал, либо execution отменён.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// NodeStatus — статус выполнения одного узла.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	        ↘ SKIPPED (только из PENDING: упал транзитивный предок
//	                   либо execution отменён)
type NodeStatus string

const (
	// NodeStatusPending — узел ожидает своего слоя.
	NodeStatusPending NodeStatus = "PENDING"

	// NodeStatusRunning — узел выполняется агентом.
	NodeStatusRunning NodeStatus = "RUNNING"

	// NodeStatusSucceeded — узел успешно завершён.
	NodeStatusSucceeded NodeStatus = "SUCCEEDED"

	// NodeStatusFailed — узел завершился с ошибкой.
	NodeStatusFailed NodeStatus = "FAILED"

	// NodeStatusSkipped — узел не выполнялся из-за падения предка или отмены.
	NodeStatusSkipped NodeStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s NodeStatus) IsTerminal() bool {
	switch s {
	case NodeStatusSucceeded, NodeStatusFailed, NodeStatusSkipped:
		return true
	default:
		return false
	}
}

// SkipReason — причина, по которой узел был пропущен.
type SkipReason string

const (
	// SkipReasonUpstreamFailed — упал транзитивный предок узла.
	SkipReasonUpstreamFailed SkipReason = "UPSTREAM_FAILED"

	// SkipReasonCancelled — execution отменён пользователем.
	SkipReasonCancelled SkipReason = "CANCELLED"
)
