// Package gateway реализует WebSocket-раздачу событий runs.
//
// Gateway подписывается на каналы шины и ретранслирует payload'ы
// клиентам байт в байт. Workspace-комната при подключении получает
// snapshot активных runs (active_run), затем live-поток; run-комната —
// только чанки потокового текста. Истории нет: события, опубликованные
// до подключения, клиенту не доигрываются.
package gateway
