// Package cli реализует инструмент командной строки Flowgrid.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Flowgrid API.
// Работает через HTTP, не импортирует внутренние пакеты сервера
// (wire-типы дублируются из api/dto.go). Единственное исключение —
// пакет stream: это такой же клиентский пакет, команда watch
// использует его для подписки на события по WebSocket.
// CLI используется для управления flows, executions и schedules.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Flowgrid API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (dataResponse, listResponse, errorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	flows, err := client.ListFlows()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.Encoder с отступами) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: flowgrid flow list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - flow: list, create, show, update, delete, validate
//   - exec: list, start, show, cancel, watch
//   - agent: list
//   - schedule: list, create, show, update, delete, enable, disable
//
// Каждая группа создаётся через фабричную функцию (NewFlowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
