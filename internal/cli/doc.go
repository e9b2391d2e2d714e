// Package cli реализует инструмент командной строки Synapse.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Synapse API.
// Работает через HTTP и WebSocket, не импортирует внутренние пакеты
// сервера. CLI используется для запуска, наблюдения и отмены runs.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Synapse API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	runs, err := client.ListRuns(cli.ListRunsOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: synapse run list --json | jq .
//
// ## Commands
//
// Cobra-команды:
//   - run: list, start, show, cancel, messages, traces, watch
//
// Группа создаётся через фабричную функцию NewRunCmd, принимающую
// clientFn и outputFn — замыкания для ленивого создания Client и
// Output после парсинга PersistentFlags. watch подключается к
// WebSocket-gateway и печатает события построчно.
package cli
