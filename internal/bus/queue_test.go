package bus

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Synapse/internal/domain"
)

func TestJobEnvelope_RoundTrip(t *testing.T) {
	run := domain.NewRun("ws-1", "user-1", "explore", "find links", map[string]any{"depth": float64(2)})
	job := domain.NewJob(run)

	payload, err := marshalJob(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := unmarshalJob(payload)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.RunID != job.RunID {
		t.Errorf("run_id mismatch: %s != %s", got.RunID, job.RunID)
	}
	if got.WorkspaceID != job.WorkspaceID || got.UserID != job.UserID {
		t.Error("workspace/user mismatch")
	}
	if got.Kind != job.Kind || got.Prompt != job.Prompt {
		t.Error("kind/prompt mismatch")
	}
	if got.Context["depth"] != float64(2) {
		t.Errorf("context mismatch: %v", got.Context)
	}
}

func TestUnmarshalJob_Malformed(t *testing.T) {
	_, err := unmarshalJob([]byte("{not json"))
	if !errors.Is(err, ErrMalformedJob) {
		t.Fatalf("expected ErrMalformedJob, got %v", err)
	}
}

func TestChannelNames(t *testing.T) {
	if got := WorkspaceChannel("ws-1"); got != "events:ws-1" {
		t.Errorf("unexpected workspace channel %s", got)
	}

	runID := uuid.MustParse("3f9c0f1e-6a43-4bd8-9f20-2f1f0a9d7b11")
	if got := RunChannel(runID); got != "stream:3f9c0f1e-6a43-4bd8-9f20-2f1f0a9d7b11" {
		t.Errorf("unexpected run channel %s", got)
	}

	if QueueJobs != "runs:jobs" {
		t.Errorf("unexpected queue key %s", QueueJobs)
	}
}
