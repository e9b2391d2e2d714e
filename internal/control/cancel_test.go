package control

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Synapse/internal/domain"
	"github.com/shaiso/Synapse/internal/repo"
)

type fakeRunStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]domain.Run
}

func newFakeRunStore(runs ...*domain.Run) *fakeRunStore {
	s := &fakeRunStore{runs: make(map[uuid.UUID]domain.Run)}
	for _, r := range runs {
		s.runs[r.ID] = *r
	}
	return s
}

func (s *fakeRunStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := run
	return &copied, nil
}

func (s *fakeRunStore) Update(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *fakeRunStore) get(id uuid.UUID) domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

type fakeEvents struct {
	completed []*domain.Run
}

func (e *fakeEvents) PublishRunCompleted(_ context.Context, run *domain.Run) error {
	e.completed = append(e.completed, run)
	return nil
}

func TestController_CancelQueued(t *testing.T) {
	run := domain.NewRun("ws-1", "user-1", "explore", "prompt", nil)
	store := newFakeRunStore(run)
	events := &fakeEvents{}
	ctrl := New(store, events, nil)

	cancelled, err := ctrl.Cancel(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.RunStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	final := store.get(run.ID)
	if final.Status != domain.RunStatusCancelled {
		t.Errorf("store should hold cancelled run, got %s", final.Status)
	}

	if len(events.completed) != 1 {
		t.Fatalf("expected 1 run_completed event, got %d", len(events.completed))
	}
	if events.completed[0].Status != domain.RunStatusCancelled {
		t.Errorf("event should carry cancelled status, got %s", events.completed[0].Status)
	}
}

func TestController_CancelRunning(t *testing.T) {
	run := domain.NewRun("ws-1", "user-1", "explore", "prompt", nil)
	run.MarkRunning()
	store := newFakeRunStore(run)
	ctrl := New(store, &fakeEvents{}, nil)

	cancelled, err := ctrl.Cancel(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.RunStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestController_CancelTerminal(t *testing.T) {
	run := domain.NewRun("ws-1", "user-1", "explore", "prompt", nil)
	run.MarkCompleted("done", nil)
	store := newFakeRunStore(run)
	events := &fakeEvents{}
	ctrl := New(store, events, nil)

	_, err := ctrl.Cancel(context.Background(), run.ID)
	if !errors.Is(err, repo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	// Терминальный run не трогаем
	final := store.get(run.ID)
	if final.Status != domain.RunStatusCompleted {
		t.Errorf("completed run should stay completed, got %s", final.Status)
	}
	if len(events.completed) != 0 {
		t.Errorf("no events expected, got %d", len(events.completed))
	}
}

func TestController_CancelMissing(t *testing.T) {
	ctrl := New(newFakeRunStore(), &fakeEvents{}, nil)

	_, err := ctrl.Cancel(context.Background(), uuid.New())
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
