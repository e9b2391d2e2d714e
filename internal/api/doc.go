// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go         — Handler с DI (хранилища, очередь, canceller, logger)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects (request/response)
//   - run_handler.go     — обработчики для /runs
//   - message_handler.go — сообщения run'а
//   - state_handler.go   — состояния узлов
//   - trace_handler.go   — шаги рассуждений
//
// API предоставляет REST endpoints для запуска, наблюдения и отмены runs.
// WebSocket-маршруты регистрирует gateway на том же mux.
package api
