// Package engine содержит движок выполнения flow.
//
// Включает:
//   - validate.go — структурная валидация графа (полный список проблем)
//   - plan.go     — построение плана выполнения: топологические слои
//   - executor.go — выполнение одного узла с таймаутом
//   - state.go    — изменяемое состояние одного execution
//   - engine.go   — жизненный цикл executions: слой-барьер,
//     конкурентное выполнение, распространение падений, отмена
//
// Engine — единственный владелец состояния execution; все остальные
// компоненты наблюдают его через события и снимки.
package engine
