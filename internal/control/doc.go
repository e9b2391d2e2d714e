// Package control реализует отмену runs.
//
// Отмена — мягкая: queued run будет выброшен воркером при dequeue,
// running run дорабатывает текущий конвейер, но его терминальный статус
// уже зафиксирован как cancelled. Подписчики workspace-канала получают
// run_completed со статусом cancelled.
package control
