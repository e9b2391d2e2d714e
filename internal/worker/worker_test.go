package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Synapse/internal/domain"
	"github.com/shaiso/Synapse/internal/pipeline"
	"github.com/shaiso/Synapse/internal/repo"
)

// --- Фейки ---

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
	if _, ok := s.runs[run.ID]; !ok {
		return repo.ErrNotFound
	}
	s.runs[run.ID] = *run
	return nil
}

func (s *fakeRunStore) get(id uuid.UUID) domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages []*domain.Message
}

func (s *fakeMessageStore) Create(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

type fakeNodeStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.NodeState
}

func (s *fakeNodeStateStore) Upsert(_ context.Context, ns *domain.NodeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states == nil {
		s.states = make(map[string]*domain.NodeState)
	}
	s.states[ns.Key()] = ns
	return nil
}

type fakeTraceStore struct {
	mu     sync.Mutex
	traces []*domain.ReasoningTrace
}

func (s *fakeTraceStore) Append(_ context.Context, t *domain.ReasoningTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces = append(s.traces, t)
	return nil
}

// fakeEvents записывает имена опубликованных событий в порядке публикации.
type fakeEvents struct {
	mu       sync.Mutex
	names    []string
	progress []int
	chunks   []domain.StreamChunk
}

func (e *fakeEvents) record(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = append(e.names, name)
}

func (e *fakeEvents) PublishRunProgress(_ context.Context, run *domain.Run) error {
	e.mu.Lock()
	e.progress = append(e.progress, run.Progress)
	e.mu.Unlock()
	e.record("run_progress")
	return nil
}

func (e *fakeEvents) PublishRunCompleted(_ context.Context, _ *domain.Run) error {
	e.record("run_completed")
	return nil
}

func (e *fakeEvents) PublishNodeState(_ context.Context, _ string, _ *domain.NodeState) error {
	e.record("node_state")
	return nil
}

func (e *fakeEvents) PublishNodeCreated(_ context.Context, _ string, _ uuid.UUID, _ map[string]any) error {
	e.record("node_created")
	return nil
}

func (e *fakeEvents) PublishEdgeCreated(_ context.Context, _ string, _ uuid.UUID, _ map[string]any) error {
	e.record("edge_created")
	return nil
}

func (e *fakeEvents) PublishReasoningStep(_ context.Context, _ string, _ *domain.ReasoningTrace) error {
	e.record("reasoning_step")
	return nil
}

func (e *fakeEvents) PublishChunk(_ context.Context, _ uuid.UUID, chunk *domain.StreamChunk) error {
	e.mu.Lock()
	e.chunks = append(e.chunks, *chunk)
	e.mu.Unlock()
	e.record("chunk")
	return nil
}

func (e *fakeEvents) published() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.names...)
}

type fakeExecutor struct {
	out   *pipeline.Output
	err   error
	emit  func(ev *pipeline.Events)
	calls int
}

func (f *fakeExecutor) Execute(_ context.Context, _ pipeline.Input, ev *pipeline.Events) (*pipeline.Output, error) {
	f.calls++
	if f.emit != nil {
		f.emit(ev)
	}
	return f.out, f.err
}

// fakeStreamer — executor с потоковым путём.
type fakeStreamer struct {
	fakeExecutor
	streamOut   *pipeline.Output
	streamErr   error
	streamEmit  func(ev *pipeline.Events)
	streamCalls int
}

func (f *fakeStreamer) ExecuteStream(_ context.Context, _ pipeline.Input, ev *pipeline.Events) (*pipeline.Output, error) {
	f.streamCalls++
	if f.streamEmit != nil {
		f.streamEmit(ev)
	}
	return f.streamOut, f.streamErr
}

type fakeRetriever struct {
	docs []pipeline.Document
	err  error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ pipeline.Input) ([]pipeline.Document, error) {
	return f.docs, f.err
}

// --- Хелперы ---

type testEnv struct {
	worker     *Worker
	runs       *fakeRunStore
	messages   *fakeMessageStore
	nodeStates *fakeNodeStateStore
	traces     *fakeTraceStore
	events     *fakeEvents
}

func newTestEnv(executor pipeline.Executor, retriever pipeline.Retriever, runs ...*domain.Run) *testEnv {
	env := &testEnv{
		runs:       newFakeRunStore(runs...),
		messages:   &fakeMessageStore{},
		nodeStates: &fakeNodeStateStore{},
		traces:     &fakeTraceStore{},
		events:     &fakeEvents{},
	}
	env.worker = New(Config{
		Runs:       env.runs,
		Messages:   env.messages,
		NodeStates: env.nodeStates,
		Traces:     env.traces,
		Events:     env.events,
		Executor:   executor,
		Retriever:  retriever,
	})
	return env
}

func queuedRun() *domain.Run {
	return domain.NewRun("ws-1", "user-1", "explore", "prompt", nil)
}

// --- Тесты ---

func TestWorker_ProcessSuccess(t *testing.T) {
	run := queuedRun()
	executor := &fakeExecutor{
		out: &pipeline.Output{
			Summary: "done",
			Result:  map[string]any{"answer": 42},
			Nodes:   []map[string]any{{"id": "n1"}},
			Edges:   []map[string]any{{"id": "e1"}},
		},
		emit: func(ev *pipeline.Events) {
			ev.EmitProgress(30, "thinking")
			ev.EmitReasoning(pipeline.ReasoningStep{StepType: "analysis", Content: "step one"})
			ev.EmitNodeCreated(map[string]any{"id": "n1"})
			ev.EmitEdgeCreated(map[string]any{"id": "e1"})
			ev.EmitProgress(80, "writing")
		},
	}
	env := newTestEnv(executor, nil, run)

	env.worker.process(context.Background(), domain.NewJob(run))

	final := env.runs.get(run.ID)
	if final.Status != domain.RunStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if final.Progress != 100 {
		t.Errorf("expected progress 100, got %d", final.Progress)
	}
	if final.Summary != "done" {
		t.Errorf("expected summary, got %q", final.Summary)
	}
	if len(final.CreatedNodes) != 1 || len(final.CreatedEdges) != 1 {
		t.Errorf("expected created nodes/edges persisted, got %d/%d",
			len(final.CreatedNodes), len(final.CreatedEdges))
	}
	if final.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	// Порядок событий: running -> прогрессы -> терминальное run_completed
	want := []string{"run_progress", "run_progress", "reasoning_step", "node_created", "edge_created", "run_progress", "run_completed"}
	got := env.events.published()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Action-сообщение об итоге
	if len(env.messages.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(env.messages.messages))
	}
	if env.messages.messages[0].Role != domain.MessageRoleAction {
		t.Errorf("expected action role, got %s", env.messages.messages[0].Role)
	}

	// Trace с номером шага
	if len(env.traces.traces) != 1 {
		t.Fatalf("expected 1 trace step, got %d", len(env.traces.traces))
	}
	if env.traces.traces[0].StepNumber != 1 {
		t.Errorf("expected step number 1, got %d", env.traces.traces[0].StepNumber)
	}
}

func TestWorker_ProcessFailure(t *testing.T) {
	run := queuedRun()
	executor := &fakeExecutor{
		err: pipeline.NewError(pipeline.StageExecution, "model unavailable", nil),
	}
	env := newTestEnv(executor, nil, run)

	env.worker.process(context.Background(), domain.NewJob(run))

	final := env.runs.get(run.ID)
	if final.Status != domain.RunStatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.Error == "" {
		t.Error("expected error message to be set")
	}
	if final.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	got := env.events.published()
	if len(got) == 0 || got[len(got)-1] != "run_completed" {
		t.Errorf("expected terminal run_completed, got %v", got)
	}

	// Action-сообщение с текстом ошибки
	if len(env.messages.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(env.messages.messages))
	}
	if env.messages.messages[0].Content != final.Error {
		t.Errorf("expected message content %q, got %q", final.Error, env.messages.messages[0].Content)
	}
}

func TestWorker_CancelledJobDiscarded(t *testing.T) {
	run := queuedRun()
	run.MarkCancelled()
	executor := &fakeExecutor{out: &pipeline.Output{}}
	env := newTestEnv(executor, nil, run)

	env.worker.process(context.Background(), domain.NewJob(run))

	if executor.calls != 0 {
		t.Error("executor should not run for cancelled run")
	}
	if got := env.events.published(); len(got) != 0 {
		t.Errorf("expected no events for cancelled run, got %v", got)
	}
	final := env.runs.get(run.ID)
	if final.Status != domain.RunStatusCancelled {
		t.Errorf("cancelled run should stay cancelled, got %s", final.Status)
	}
}

func TestWorker_UnknownRunDiscarded(t *testing.T) {
	run := queuedRun()
	executor := &fakeExecutor{out: &pipeline.Output{}}
	env := newTestEnv(executor, nil) // run не в store

	env.worker.process(context.Background(), domain.NewJob(run))

	if executor.calls != 0 {
		t.Error("executor should not run for unknown run")
	}
}

func TestWorker_ProgressMonotonic(t *testing.T) {
	run := queuedRun()
	executor := &fakeExecutor{
		out: &pipeline.Output{Summary: "done"},
		emit: func(ev *pipeline.Events) {
			ev.EmitProgress(50, "half")
			ev.EmitProgress(30, "late event") // меньше текущего — игнорируется
			ev.EmitProgress(250, "overflow")  // больше 100 — клампится
		},
	}
	env := newTestEnv(executor, nil, run)

	env.worker.process(context.Background(), domain.NewJob(run))

	// 0 (running), 50, 50 (попытка отката), 100 (кламп)
	want := []int{0, 50, 50, 100}
	if len(env.events.progress) != len(want) {
		t.Fatalf("expected %d progress events, got %v", len(want), env.events.progress)
	}
	for i := range want {
		if env.events.progress[i] != want[i] {
			t.Errorf("progress %d: expected %d, got %d", i, want[i], env.events.progress[i])
		}
	}
}

func TestWorker_StreamingFallback(t *testing.T) {
	run := queuedRun()
	streamer := &fakeStreamer{
		fakeExecutor: fakeExecutor{out: &pipeline.Output{Summary: "fallback done"}},
		streamErr:    pipeline.NewError(pipeline.StageStreaming, "stream endpoint down", nil),
	}
	env := newTestEnv(streamer, nil, run)

	env.worker.process(context.Background(), domain.NewJob(run))

	if streamer.streamCalls != 1 {
		t.Errorf("expected 1 stream attempt, got %d", streamer.streamCalls)
	}
	if streamer.calls != 1 {
		t.Errorf("expected fallback Execute call, got %d", streamer.calls)
	}
	final := env.runs.get(run.ID)
	if final.Status != domain.RunStatusCompleted {
		t.Errorf("expected completed after fallback, got %s", final.Status)
	}
	if final.Summary != "fallback done" {
		t.Errorf("expected fallback summary, got %q", final.Summary)
	}
}

func TestWorker_StreamingNoFallbackAfterFirstEvent(t *testing.T) {
	run := queuedRun()
	streamer := &fakeStreamer{
		fakeExecutor: fakeExecutor{out: &pipeline.Output{Summary: "should not run"}},
		streamErr:    pipeline.NewError(pipeline.StageStreaming, "broken mid-stream", nil),
		streamEmit: func(ev *pipeline.Events) {
			ev.EmitChunk(domain.StreamChunk{StepType: "generation", Text: "partial"})
		},
	}
	env := newTestEnv(streamer, nil, run)

	env.worker.process(context.Background(), domain.NewJob(run))

	// События уже ушли клиентам — отката нет, run падает.
	if streamer.calls != 0 {
		t.Errorf("expected no fallback after first event, Execute called %d times", streamer.calls)
	}
	final := env.runs.get(run.ID)
	if final.Status != domain.RunStatusFailed {
		t.Errorf("expected failed, got %s", final.Status)
	}
}

func TestWorker_RetrievalFailureContinues(t *testing.T) {
	run := queuedRun()
	executor := &fakeExecutor{out: &pipeline.Output{Summary: "done"}}
	retriever := &fakeRetriever{err: errors.New("search unavailable")}
	env := newTestEnv(executor, retriever, run)

	env.worker.process(context.Background(), domain.NewJob(run))

	final := env.runs.get(run.ID)
	if final.Status != domain.RunStatusCompleted {
		t.Errorf("retrieval failure should not fail run, got %s", final.Status)
	}
}

func TestWorker_NodeStateUpserted(t *testing.T) {
	run := queuedRun()
	executor := &fakeExecutor{
		out: &pipeline.Output{Summary: "done"},
		emit: func(ev *pipeline.Events) {
			ev.EmitNodeState(pipeline.NodeUpdate{TempNodeID: "tmp-1", State: domain.NodeStateGenerating})
			ev.EmitNodeState(pipeline.NodeUpdate{TempNodeID: "tmp-1", State: domain.NodeStateComplete})
		},
	}
	env := newTestEnv(executor, nil, run)

	env.worker.process(context.Background(), domain.NewJob(run))

	// Повторный upsert по тому же ключу перезаписывает состояние
	ns, ok := env.nodeStates.states["tmp-1"]
	if !ok {
		t.Fatal("expected node state for tmp-1")
	}
	if ns.State != domain.NodeStateComplete {
		t.Errorf("expected complete, got %s", ns.State)
	}
}

// fakeQueue выдаёт jobs по одному, затем блокируется до отмены контекста.
type fakeQueue struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func (q *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	q.mu.Lock()
	if len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		return job, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, context.Canceled
	case <-time.After(timeout):
		return nil, nil
	}
}

func TestWorker_StartStop(t *testing.T) {
	run := queuedRun()
	executor := &fakeExecutor{out: &pipeline.Output{Summary: "done"}}
	env := newTestEnv(executor, nil, run)
	env.worker.queue = &fakeQueue{jobs: []*domain.Job{domain.NewJob(run)}}
	env.worker.pollTimeout = 10 * time.Millisecond

	if err := env.worker.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Ждём обработки job
	deadline := time.After(2 * time.Second)
	for env.runs.get(run.ID).Status != domain.RunStatusCompleted {
		select {
		case <-deadline:
			t.Fatal("run was not processed in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	env.worker.Stop()
}
