package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Flowgrid/internal/domain"
)

// SnapshotHandler обрабатывает терминальный снимок execution.
// Ошибка возвращает сообщение в очередь; обработчик обязан быть
// идемпотентным — тот же снимок может прийти повторно.
type SnapshotHandler func(ctx context.Context, exec *domain.Execution) error

// FinishedConsumer читает очередь executions.finished и передаёт
// снимки обработчику.
//
// Ack вручную после успешной обработки. Некорректное сообщение
// уходит в DLQ, ошибка обработчика возвращает сообщение в очередь.
// Разрыв соединения переживается: после ReconnectNotify подписка
// пересоздаётся на новом канале.
type FinishedConsumer struct {
	conn     *Connection
	logger   *slog.Logger
	handler  SnapshotHandler
	prefetch int
}

// FinishedConsumerConfig — конфигурация FinishedConsumer.
type FinishedConsumerConfig struct {
	// Handler — обработчик снимков (обязателен).
	Handler SnapshotHandler

	// Prefetch — сколько неподтверждённых снимков держать в полёте
	// (default: 1).
	Prefetch int
}

// NewFinishedConsumer создаёт consumer очереди executions.finished.
func NewFinishedConsumer(conn *Connection, logger *slog.Logger, cfg FinishedConsumerConfig) *FinishedConsumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &FinishedConsumer{
		conn:     conn,
		logger:   logger,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run потребляет очередь до отмены ctx.
func (c *FinishedConsumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe",
				"queue", QueueExecutionsFinished, "error", err)
			if err := c.awaitRedial(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consuming", "queue", QueueExecutionsFinished)

		if err := c.drain(ctx, deliveries); err != nil {
			return err
		}

		// Канал доставки закрыт — ждём redial и пересоздаём подписку.
		if err := c.awaitRedial(ctx); err != nil {
			return err
		}
	}
}

// subscribe настраивает Qos и начинает потребление на текущем канале.
func (c *FinishedConsumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(QueueExecutionsFinished),
		"",    // consumer tag (auto-generated)
		false, // auto-ack: подтверждаем вручную
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// drain обрабатывает доставки до отмены ctx (ошибка) или закрытия
// канала доставки (nil).
func (c *FinishedConsumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed",
					"queue", QueueExecutionsFinished)
				return nil
			}
			c.handle(ctx, raw)
		}
	}
}

// handle разбирает одно сообщение и применяет обработчик.
func (c *FinishedConsumer) handle(ctx context.Context, raw amqp.Delivery) {
	exec, err := decodeSnapshot(raw.Body)
	if err != nil {
		c.logger.Error("malformed snapshot message, sending to DLQ",
			"queue", QueueExecutionsFinished,
			"error", err,
		)
		raw.Nack(false, false)
		return
	}

	if err := c.handler(ctx, exec); err != nil {
		c.logger.Error("snapshot handler failed",
			"execution_id", exec.ID,
			"error", err,
		)
		raw.Nack(false, true)
		return
	}

	raw.Ack(false)
}

// awaitRedial ждёт восстановления соединения или отмены ctx.
func (c *FinishedConsumer) awaitRedial(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		return nil
	}
}

// decodeSnapshot извлекает терминальный снимок из сообщения
// execution.finished.
func decodeSnapshot(body []byte) (*domain.Execution, error) {
	var msg struct {
		ID      string                   `json:"id"`
		Type    MessageType              `json:"type"`
		Payload ExecutionFinishedPayload `json:"payload"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if msg.Type != MessageTypeExecutionFinished {
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if msg.Payload.Execution == nil {
		return nil, fmt.Errorf("message %s carries no execution snapshot", msg.ID)
	}
	return msg.Payload.Execution, nil
}
