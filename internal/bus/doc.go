// Package bus предоставляет инфраструктуру для работы с Redis:
// очередь jobs и pub/sub каналы событий.
//
// Структура:
//   - client.go    — подключение к Redis
//   - channels.go  — имена очереди и каналов
//   - queue.go     — очередь jobs (LPUSH / BRPOP)
//   - publisher.go — публикация событий в каналы
//   - subscribe.go — подписка на каналы
//
// Каналы:
//   - events:{workspace_id} — события жизненного цикла runs workspace'а
//   - stream:{run_id}       — потоковые текстовые фрагменты одного run
//
// Гарантии: доставка at-most-once, порядок публикации сохраняется в
// пределах одного канала. Каналы не хранят историю — подписчик, не
// подключённый в момент публикации, событие не получит. Очередь
// атомарна на уровне брокера: каждый job забирает ровно один воркер.
package bus
