package bus

import (
	"github.com/google/uuid"
)

// QueueJobs — имя списка-очереди jobs.
const QueueJobs = "runs:jobs"

// WorkspaceChannel возвращает имя канала событий workspace'а.
// Канал несёт события жизненного цикла всех runs этого workspace.
func WorkspaceChannel(workspaceID string) string {
	return "events:" + workspaceID
}

// RunChannel возвращает имя канала потоковых фрагментов одного run.
func RunChannel(runID uuid.UUID) string {
	return "stream:" + runID.String()
}
