package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler — интерфейс агента, выполняемого узлом графа.
//
// Это единственный шов между Engine и предметной логикой агентов:
// Engine передаёт конфигурацию узла и outputs прямых предков
// (по ID узла-источника) и получает непрозрачный результат.
// Engine не интерпретирует содержимое inputs/output.
//
// Реализация обязана уважать отмену ctx: при отмене или истечении
// дедлайна выполнение должно завершиться кооперативно.
type Handler interface {
	Invoke(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error)
}

// HandlerFunc — адаптер функции к интерфейсу Handler.
type HandlerFunc func(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error)

// Invoke реализует интерфейс Handler.
func (f HandlerFunc) Invoke(ctx context.Context, config map[string]any, inputs map[string]map[string]any) (map[string]any, error) {
	return f(ctx, config, inputs)
}

// Info — метаданные зарегистрированного типа агента.
//
// Отдаются клиенту через GET /api/v1/agents, чтобы редактор
// мог построить форму настроек узла.
type Info struct {
	// Type — тип агента ("trading", "risk", ...).
	Type string `json:"type"`

	// Description — описание назначения агента.
	Description string `json:"description"`

	// ConfigSchema — схема конфигурации (ключ → описание поля).
	ConfigSchema map[string]any `json:"config_schema,omitempty"`
}

// Registry — реестр агентов по типу.
//
// Новые типы агентов регистрируются без изменений в Engine:
// Engine ищет handler по AgentType узла (capability lookup),
// а не перебирает известные типы.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	infos    map[string]Info
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		infos:    make(map[string]Info),
	}
}

// NewDefaultRegistry создаёт реестр с встроенными агентами.
//
// Регистрирует: market, sentiment, trading, risk, portfolio.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

// Register добавляет handler для типа агента.
// Повторная регистрация того же типа заменяет handler.
func (r *Registry) Register(info Info, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[info.Type] = h
	r.infos[info.Type] = info
}

// Resolve возвращает handler для типа агента.
func (r *Registry) Resolve(agentType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[agentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, agentType)
	}
	return h, nil
}

// Infos возвращает метаданные всех зарегистрированных агентов,
// отсортированные по типу.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.infos))
	for _, info := range r.infos {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}

// Types возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
