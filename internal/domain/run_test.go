package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewRun(t *testing.T) {
	run := NewRun("ws-1", "user-1", "explore", "find connections", map[string]any{"depth": 2})

	if run.Status != RunStatusQueued {
		t.Errorf("expected queued, got %s", run.Status)
	}
	if run.Progress != 0 {
		t.Errorf("expected progress 0, got %d", run.Progress)
	}
	if run.CompletedAt != nil {
		t.Error("completed_at should be nil for new run")
	}
	if run.ID == uuid.Nil {
		t.Error("expected generated id")
	}
}

func TestRun_AdvanceProgress(t *testing.T) {
	run := NewRun("ws-1", "user-1", "explore", "prompt", nil)
	run.MarkRunning()

	run.AdvanceProgress(40, "analyzing")
	if run.Progress != 40 || run.CurrentStep != "analyzing" {
		t.Errorf("expected 40/analyzing, got %d/%s", run.Progress, run.CurrentStep)
	}

	// Меньшее значение игнорируется, шаг обновляется
	run.AdvanceProgress(20, "late step")
	if run.Progress != 40 {
		t.Errorf("progress must be monotonic, got %d", run.Progress)
	}
	if run.CurrentStep != "late step" {
		t.Errorf("step should update, got %s", run.CurrentStep)
	}

	// Значение выше 100 клампится
	run.AdvanceProgress(150, "")
	if run.Progress != 100 {
		t.Errorf("expected clamp to 100, got %d", run.Progress)
	}
}

func TestRun_AdvanceProgress_TerminalNoop(t *testing.T) {
	run := NewRun("ws-1", "user-1", "explore", "prompt", nil)
	run.MarkCompleted("done", nil)

	run.AdvanceProgress(10, "ghost step")
	if run.Progress != 100 {
		t.Errorf("terminal run must not change, got %d", run.Progress)
	}
	if run.CurrentStep == "ghost step" {
		t.Error("terminal run must not change current_step")
	}
}

func TestRun_MarkCompleted(t *testing.T) {
	run := NewRun("ws-1", "user-1", "explore", "prompt", nil)
	run.MarkRunning()
	run.AdvanceProgress(60, "working")

	run.MarkCompleted("all done", map[string]any{"count": 3})

	if run.Status != RunStatusCompleted {
		t.Errorf("expected completed, got %s", run.Status)
	}
	if run.Progress != 100 {
		t.Errorf("completion fixes progress at 100, got %d", run.Progress)
	}
	if run.Summary != "all done" {
		t.Errorf("unexpected summary %q", run.Summary)
	}
	if run.CompletedAt == nil {
		t.Error("completed_at must be set")
	}
}

func TestRun_MarkFailed(t *testing.T) {
	run := NewRun("ws-1", "user-1", "explore", "prompt", nil)
	run.MarkRunning()
	run.AdvanceProgress(60, "working")

	run.MarkFailed("model unavailable")

	if run.Status != RunStatusFailed {
		t.Errorf("expected failed, got %s", run.Status)
	}
	// Прогресс остаётся на месте падения
	if run.Progress != 60 {
		t.Errorf("failure must not touch progress, got %d", run.Progress)
	}
	if run.Error != "model unavailable" {
		t.Errorf("unexpected error %q", run.Error)
	}
	if run.CompletedAt == nil {
		t.Error("completed_at must be set")
	}
}

func TestNodeState_Key(t *testing.T) {
	ns := &NodeState{NodeID: "node-1", TempNodeID: "tmp-1"}
	if ns.Key() != "node-1" {
		t.Errorf("NodeID takes precedence, got %s", ns.Key())
	}

	ns = &NodeState{TempNodeID: "tmp-1"}
	if ns.Key() != "tmp-1" {
		t.Errorf("expected temp id fallback, got %s", ns.Key())
	}
}

func TestNewJob_Snapshot(t *testing.T) {
	run := NewRun("ws-1", "user-1", "prove", "prove it", map[string]any{"k": "v"})
	job := NewJob(run)

	if job.RunID != run.ID {
		t.Error("job must reference run")
	}
	if job.WorkspaceID != "ws-1" || job.UserID != "user-1" {
		t.Error("job must snapshot workspace and user")
	}
	if job.Kind != "prove" || job.Prompt != "prove it" {
		t.Error("job must snapshot kind and prompt")
	}
	if job.EnqueuedAt.IsZero() {
		t.Error("enqueued_at must be set")
	}
}
