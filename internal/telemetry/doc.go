// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает structured logging через slog (logging.go); формат и уровень
// задаются переменными окружения LOG_FORMAT и LOG_LEVEL.
//
// Prometheus-метрики сервисы регистрируют через promauto в своих main
// и экспортируют на /metrics endpoint.
package telemetry
