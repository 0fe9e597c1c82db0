// Package stream содержит WebSocket клиент потока событий execution.
//
// Клиент переподключается после разрыва с фиксированной паузой и
// продолжает чтение с последнего увиденного номера события, так что
// потребитель видит непрерывный упорядоченный поток.
package stream
