package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/domain"
	"github.com/shaiso/Flowgrid/internal/telemetry"
)

// Default configuration values.
const (
	defaultRetention  = 5 * time.Minute
	defaultBufferSize = 64
)

// ErrUnknownExecution — подписка на execution, для которого hub
// не держит поток (не начинался или удержание истекло).
var ErrUnknownExecution = errors.New("unknown execution")

// Hub — упорядоченный журнал событий выполнения.
//
// Hub присваивает каждому событию порядковый номер, монотонный
// в рамках одного execution, хранит журнал целиком до терминального
// события плюс период удержания и раздаёт его подписчикам: сначала
// replay с запрошенного номера, затем живые события, без пропусков
// и дубликатов.
type Hub struct {
	mu      sync.Mutex
	streams map[uuid.UUID]*stream

	retention  time.Duration
	bufferSize int

	logger *slog.Logger
}

// stream — журнал одного execution.
type stream struct {
	events  []*domain.Event
	nextSeq uint64
	subs    map[*subscriber]struct{}
	done    bool
}

type subscriber struct {
	ch chan *domain.Event
}

// Config — конфигурация Hub.
type Config struct {
	// Retention — сколько журнал хранится после терминального
	// события (default: 5m).
	Retention time.Duration

	// BufferSize — размер живого буфера подписчика. Подписчик,
	// не вычитывающий события, отбрасывается при переполнении
	// (default: 64).
	BufferSize int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Hub.
func New(cfg Config) *Hub {
	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		streams:    make(map[uuid.UUID]*stream),
		retention:  retention,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Register заводит пустой поток для execution.
//
// Вызывается при допуске execution к выполнению, чтобы подписка,
// пришедшая раньше первого события, не получила ErrUnknownExecution.
// Повторная регистрация того же ID безвредна.
func (h *Hub) Register(executionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.streams[executionID]; ok {
		return
	}
	h.streams[executionID] = &stream{nextSeq: 1, subs: make(map[*subscriber]struct{})}
}

// Publish присваивает событию порядковый номер и раздаёт его
// подписчикам. Номер и время проставляются под блокировкой потока,
// поэтому конкурентные публикации одного execution сериализуются.
func (h *Hub) Publish(ev *domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[ev.ExecutionID]
	if !ok {
		s = &stream{nextSeq: 1, subs: make(map[*subscriber]struct{})}
		h.streams[ev.ExecutionID] = s
	}

	ev.Sequence = s.nextSeq
	s.nextSeq++
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	s.events = append(s.events, ev)

	telemetry.EventsPublished.WithLabelValues(string(ev.Kind)).Inc()

	for sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			// Подписчик не успевает: отбрасываем, он переподпишется
			// с последнего увиденного номера.
			h.drop(s, sub)
			h.logger.Warn("dropped slow subscriber",
				"execution_id", ev.ExecutionID,
				"sequence", ev.Sequence,
			)
		}
	}

	if ev.Kind == domain.EventExecutionCompleted || ev.Kind == domain.EventExecutionFailed {
		h.finishStream(ev.ExecutionID, s)
	}
}

// finishStream закрывает подписчиков и назначает удаление журнала
// после периода удержания. Вызывается под h.mu.
func (h *Hub) finishStream(executionID uuid.UUID, s *stream) {
	s.done = true
	for sub := range s.subs {
		h.drop(s, sub)
	}

	time.AfterFunc(h.retention, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.streams, executionID)
	})
}

// drop удаляет подписчика и закрывает его канал. Вызывается под h.mu.
func (h *Hub) drop(s *stream, sub *subscriber) {
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.ch)
	telemetry.Subscribers.Dec()
}

// Subscribe подписывает на события execution начиная с номера fromSeq.
//
// Уже опубликованные события с номером >= fromSeq доставляются из
// журнала, дальше идут живые — без пропуска и без дубликата на стыке.
// Канал закрывается после терминального события или при отбрасывании
// медленного подписчика. Возвращённая функция отменяет подписку.
func (h *Hub) Subscribe(executionID uuid.UUID, fromSeq uint64) (<-chan *domain.Event, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[executionID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExecution, executionID)
	}

	var replay []*domain.Event
	for _, ev := range s.events {
		if ev.Sequence >= fromSeq {
			replay = append(replay, ev)
		}
	}

	sub := &subscriber{ch: make(chan *domain.Event, len(replay)+h.bufferSize)}
	for _, ev := range replay {
		sub.ch <- ev
	}

	if s.done {
		// Терминальное событие уже в replay: доставляем журнал
		// и сразу закрываем.
		close(sub.ch)
		return sub.ch, func() {}, nil
	}

	s.subs[sub] = struct{}{}
	telemetry.Subscribers.Inc()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.drop(s, sub)
	}
	return sub.ch, cancel, nil
}

// Events возвращает копию журнала execution начиная с номера fromSeq.
func (h *Hub) Events(executionID uuid.UUID, fromSeq uint64) ([]*domain.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[executionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExecution, executionID)
	}

	var out []*domain.Event
	for _, ev := range s.events {
		if ev.Sequence >= fromSeq {
			out = append(out, ev)
		}
	}
	return out, nil
}
