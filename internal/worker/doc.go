// Package worker реализует цикл обработки runs.
//
// Воркер блокирующе забирает jobs из очереди, прогоняет run через
// AI-конвейер (pipeline.Executor) и фиксирует терминальный статус.
// Промежуточные события конвейера — прогресс, состояния узлов, шаги
// рассуждений, чанки текста — транслируются в реестр и шину событий
// по мере поступления.
//
// Гарантии:
//   - job обрабатывается не более чем одним воркером (atomic dequeue)
//   - retry нет: упавший run остаётся failed
//   - job, потерянный при падении воркера, не восстанавливается
//   - отменённый до старта run выбрасывается без событий
package worker
