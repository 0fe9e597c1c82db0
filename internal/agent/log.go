package agent

import (
	"context"
	"fmt"
)

// LogFunc — приёмник строк лога агента.
//
// Engine кладёт приёмник в контекст вызова: каждая строка
// превращается в node_log событие для наблюдателей execution.
type LogFunc func(level, message string)

// Ключи контекста.
type ctxKey string

const ctxLogSink ctxKey = "log_sink"

// WithLogSink добавляет приёмник лога в контекст.
func WithLogSink(ctx context.Context, fn LogFunc) context.Context {
	return context.WithValue(ctx, ctxLogSink, fn)
}

// Logf отправляет строку лога в приёмник из контекста.
// Если приёмника нет (например, в тестах), строка отбрасывается.
func Logf(ctx context.Context, level, format string, args ...any) {
	fn, ok := ctx.Value(ctxLogSink).(LogFunc)
	if !ok {
		return
	}
	fn(level, fmt.Sprintf(format, args...))
}
