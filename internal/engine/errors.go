package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки engine.
var (
	// ErrInvalidState — операция невозможна в текущем состоянии
	// (например, повторный запуск того же execution).
	ErrInvalidState = errors.New("invalid execution state")

	// ErrExecutionNotFound — execution не найден среди активных.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrNodeTimeout — выполнение узла превысило таймаут.
	ErrNodeTimeout = errors.New("node execution timeout")

	// ErrCancelled — выполнение прервано отменой.
	ErrCancelled = errors.New("execution cancelled")
)

// ValidationFailedError — граф не прошёл валидацию.
//
// Несёт полный список замечаний, чтобы клиент исправил
// все проблемы за один проход.
type ValidationFailedError struct {
	Result ValidationResult
}

// Error реализует интерфейс error.
func (e *ValidationFailedError) Error() string {
	errs := e.Result.Errors()
	msgs := make([]string, len(errs))
	for i, issue := range errs {
		msgs[i] = issue.Message
	}
	return fmt.Sprintf("flow validation failed: %s", strings.Join(msgs, "; "))
}

// CycleError — граф содержит цикл и не может быть упорядочен.
//
// NodeIDs — узлы, оставшиеся без слоя после пилинга: это в точности
// члены цикла (и узлы, достижимые только через цикл).
type CycleError struct {
	NodeIDs []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving nodes: %s", strings.Join(e.NodeIDs, ", "))
}
