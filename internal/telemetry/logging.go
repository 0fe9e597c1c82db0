package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger инициализирует глобальный логгер процесса.
//
// Все бинарники Flowgrid логируют одинаково: structured slog в stdout
// с атрибутом service, по которому записи разных процессов различимы
// в общем потоке.
//
// Переменные окружения:
//   - LOG_LEVEL: debug, info, warn, error (по умолчанию info);
//     на уровне debug добавляется источник записи
//   - LOG_FORMAT: "text" для разработки, иначе JSON
func SetupLogger(service string) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)

	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
