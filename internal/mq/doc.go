// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация терминальных снимков executions
//   - consumer.go   — потребление снимков (FinishedConsumer)
//
// Типы сообщений:
//   - execution.finished — терминальный снимок завершённого execution
//
// Exchanges:
//   - flowgrid.executions — события завершения executions
//   - flowgrid.dlq        — dead letter queue
package mq
