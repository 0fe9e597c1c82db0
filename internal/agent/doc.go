// Package agent содержит реестр агентов и встроенные реализации.
//
// Агент — единица предметной работы узла графа, идентифицируемая
// типом (agent_type). Engine не знает, что агент делает внутри:
// он разрешает тип через Registry и вызывает Handler с конфигурацией
// узла и outputs прямых предков.
//
// Включает:
//   - agent.go   — интерфейс Handler, Registry, метаданные Info
//   - builtin.go — встроенные торговые агенты (market, sentiment,
//     trading, risk, portfolio)
//   - log.go     — приёмник строк лога агента (node_log события)
package agent
