// Package hub содержит журнал событий выполнения.
//
// Каждый execution получает свой упорядоченный append-only журнал:
// hub присваивает событиям монотонные порядковые номера, раздаёт их
// подписчикам (replay с запрошенного номера, затем живой поток) и
// удерживает журнал после завершения execution, чтобы поздние и
// переподключившиеся наблюдатели увидели полную историю.
package hub
