package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind — тип события execution.
type EventKind string

const (
	// EventNodeStarted — узел начал выполнение.
	EventNodeStarted EventKind = "node_started"

	// EventNodeLog — строка лога от агента во время выполнения узла.
	EventNodeLog EventKind = "node_log"

	// EventNodeCompleted — узел успешно завершён.
	EventNodeCompleted EventKind = "node_completed"

	// EventNodeFailed — узел завершился с ошибкой.
	EventNodeFailed EventKind = "node_failed"

	// EventExecutionCompleted — execution завершён успешно.
	EventExecutionCompleted EventKind = "execution_completed"

	// EventExecutionFailed — execution завершён с ошибкой или отменён.
	EventExecutionFailed EventKind = "execution_failed"
)

// Event — неизменяемое событие выполнения.
//
// События append-only: Sequence строго монотонно растёт в рамках
// одного execution, что позволяет переподключившемуся наблюдателю
// запросить replay с известной точки.
type Event struct {
	// ExecutionID — execution, к которому относится событие.
	ExecutionID uuid.UUID `json:"execution_id"`

	// Sequence — порядковый номер события в рамках execution.
	// Присваивается Event Hub при публикации, начиная с 1.
	Sequence uint64 `json:"sequence"`

	// Kind — тип события.
	Kind EventKind `json:"kind"`

	// NodeID — узел, к которому относится событие (для node_* событий).
	NodeID string `json:"node_id,omitempty"`

	// Status — новый статус (для статусных событий).
	Status string `json:"status,omitempty"`

	// Level — уровень лога (для node_log).
	Level string `json:"level,omitempty"`

	// Message — человекочитаемое сообщение.
	Message string `json:"message,omitempty"`

	// Payload — непрозрачные данные (output узла и т.п.).
	Payload map[string]any `json:"payload,omitempty"`

	// Timestamp — время создания события.
	Timestamp time.Time `json:"timestamp"`
}
