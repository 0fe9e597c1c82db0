package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// reconnectDelay — фиксированная пауза перед повторным подключением.
const reconnectDelay = 3 * time.Second

// Event — событие выполнения в wire-формате API.
// Дублируется из api/dto.go: клиент не импортирует внутренние
// пакеты сервера.
type Event struct {
	Type        string         `json:"type"`
	ExecutionID uuid.UUID      `json:"execution_id"`
	Sequence    uint64         `json:"sequence"`
	NodeID      string         `json:"node_id,omitempty"`
	Status      string         `json:"status,omitempty"`
	Level       string         `json:"level,omitempty"`
	Message     string         `json:"message,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// EventFunc вызывается для каждого полученного события.
type EventFunc func(ev Event)

// Client — WebSocket клиент потока событий с автоматическим reconnect.
//
// При разрыве соединения клиент ждёт фиксированную паузу и
// переподключается с from_seq = последний увиденный номер + 1,
// поэтому поток событий у потребителя не имеет ни пропусков, ни
// дубликатов. Нормальное закрытие со стороны сервера означает, что
// терминальное событие доставлено.
type Client struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// NewClient создаёт новый Client.
// baseURL — адрес API ("http://localhost:8080").
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Watch читает поток событий execution до терминального события.
//
// Каждое событие передаётся в fn в порядке номеров. Watch возвращает
// nil после нормального закрытия потока сервером и ошибку контекста
// при отмене. Разрывы соединения обрабатываются внутри.
func (c *Client) Watch(ctx context.Context, executionID uuid.UUID, fn EventFunc) error {
	var lastSeq uint64

	for {
		done, err := c.watchOnce(ctx, executionID, &lastSeq, fn)
		if done {
			return err
		}

		c.logger.Warn("event stream disconnected, retrying",
			"execution_id", executionID,
			"last_seq", lastSeq,
			"delay", reconnectDelay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// watchOnce выполняет одно подключение.
// done=true — поток завершён (нормальное закрытие или отмена ctx).
func (c *Client) watchOnce(ctx context.Context, executionID uuid.UUID, lastSeq *uint64, fn EventFunc) (bool, error) {
	conn, err := c.dial(ctx, executionID, *lastSeq+1)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		return false, err
	}
	defer conn.Close()

	// Разрываем блокирующий Read при отмене контекста. Канал done
	// выводит горутину при завершении попытки, иначе долгий Watch
	// накапливал бы по горутине на каждый reconnect.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return false, err
		}

		// Hub мог переслать уже виденное на стыке replay и live.
		if ev.Sequence <= *lastSeq {
			continue
		}
		*lastSeq = ev.Sequence
		fn(ev)
	}
}

// dial открывает WebSocket соединение с нужного номера события.
func (c *Client) dial(ctx context.Context, executionID uuid.UUID, fromSeq uint64) (*websocket.Conn, error) {
	wsURL, err := c.eventsURL(executionID, fromSeq)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return conn, nil
}

// eventsURL строит ws:// URL потока событий.
func (c *Client) eventsURL(executionID uuid.UUID, fromSeq uint64) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	u.Path = fmt.Sprintf("/api/v1/executions/%s/events", executionID)
	u.RawQuery = fmt.Sprintf("from_seq=%d", fromSeq)
	return u.String(), nil
}
