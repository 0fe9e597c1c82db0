package agent

import "errors"

// Ошибки агентов.
var (
	// ErrNotFound — для типа агента нет зарегистрированного handler.
	ErrNotFound = errors.New("agent type not registered")

	// ErrMissingConfig — в конфигурации узла нет обязательного поля.
	ErrMissingConfig = errors.New("missing required config field")
)

// Error — предметная ошибка агента.
//
// Отличается от инфраструктурных ошибок (таймаут, отмена):
// агент выполнился, но предметная логика сообщила о провале.
type Error struct {
	AgentType string // тип агента
	Message   string // описание ошибки
	Err       error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.AgentType != "" {
		return "agent " + e.AgentType + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создаёт предметную ошибку агента.
func NewError(agentType, message string, err error) *Error {
	return &Error{
		AgentType: agentType,
		Message:   message,
		Err:       err,
	}
}
