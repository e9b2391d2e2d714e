package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	queued → running → completed
//	                 ↘ failed
//	       (или) → cancelled (из queued или running)
//
// Значения хранятся и передаются по сети в нижнем регистре.
type RunStatus string

const (
	// RunStatusQueued — run создан и поставлен в очередь, ещё не выполняется.
	RunStatusQueued RunStatus = "queued"

	// RunStatusRunning — run в процессе выполнения воркером.
	RunStatusRunning RunStatus = "running"

	// RunStatusCompleted — run успешно завершён.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusFailed — run завершился с ошибкой.
	RunStatusFailed RunStatus = "failed"

	// RunStatusCancelled — run отменён пользователем.
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
// Терминальный run неизменяем: ни статус, ни progress больше не меняются.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive возвращает true, если run ещё не завершён (queued или running).
func (s RunStatus) IsActive() bool {
	return s == RunStatusQueued || s == RunStatusRunning
}

// CanTransitionTo проверяет допустимость перехода между статусами.
//
// Допустимые переходы:
//
//	queued  → running, cancelled
//	running → completed, failed, cancelled
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunStatusQueued:
		return next == RunStatusRunning || next == RunStatusCancelled
	case RunStatusRunning:
		return next == RunStatusCompleted || next == RunStatusFailed || next == RunStatusCancelled
	default:
		return false
	}
}
