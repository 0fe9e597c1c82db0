// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (репозитории, engine, hub, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - flow_handler.go      — обработчики для /flows
//   - execution_handler.go — запуск, отмена и история executions
//   - schedule_handler.go  — обработчики для /schedules
//   - ws.go                — WebSocket поток событий execution
//
// API предоставляет REST endpoints для управления flows, executions
// и schedules, плюс WebSocket для наблюдения за выполнением.
package api
