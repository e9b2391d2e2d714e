package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shaiso/Synapse/internal/domain"
)

type fakeSub struct {
	events chan []byte
	once   sync.Once
}

func newFakeSub() *fakeSub {
	return &fakeSub{events: make(chan []byte, 16)}
}

func (s *fakeSub) Events() <-chan []byte { return s.events }

func (s *fakeSub) Close() error {
	s.once.Do(func() { close(s.events) })
	return nil
}

type fakeLister struct {
	runs []domain.Run
}

func (l *fakeLister) ListActive(_ context.Context, _ string) ([]domain.Run, error) {
	return l.runs, nil
}

// newTestGateway поднимает Gateway на httptest-сервере с одной подпиской.
func newTestGateway(t *testing.T, sub *fakeSub, lister *fakeLister) (*httptest.Server, *Gateway) {
	t.Helper()

	gw := New(Config{
		Subscribe: func(_ context.Context, _ string) (Subscription, error) {
			return sub, nil
		},
		Runs: lister,
	})

	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, gw
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(payload)
}

func TestGateway_SnapshotThenLiveStream(t *testing.T) {
	run1 := domain.NewRun("ws-1", "user-1", "explore", "first", nil)
	run2 := domain.NewRun("ws-1", "user-1", "prove", "second", nil)
	run2.MarkRunning()

	sub := newFakeSub()
	srv, _ := newTestGateway(t, sub, &fakeLister{runs: []domain.Run{*run1, *run2}})

	conn := dial(t, srv, "/ws/workspace/ws-1")

	// Сначала snapshot — по active_run на каждый активный run, в порядке выборки.
	for i, wantID := range []uuid.UUID{run1.ID, run2.ID} {
		var event struct {
			EventType string      `json:"event_type"`
			Run       *domain.Run `json:"run"`
		}
		if err := json.Unmarshal([]byte(readText(t, conn)), &event); err != nil {
			t.Fatalf("snapshot %d: %v", i, err)
		}
		if event.EventType != "active_run" {
			t.Errorf("snapshot %d: expected active_run, got %s", i, event.EventType)
		}
		if event.Run == nil || event.Run.ID != wantID {
			t.Errorf("snapshot %d: unexpected run", i)
		}
	}

	// Затем live-события — байт в байт, в порядке публикации.
	sub.events <- []byte(`{"event_type":"run_progress","progress":50}`)
	sub.events <- []byte(`{"event_type":"run_completed"}`)

	if got := readText(t, conn); got != `{"event_type":"run_progress","progress":50}` {
		t.Errorf("unexpected first live payload: %s", got)
	}
	if got := readText(t, conn); got != `{"event_type":"run_completed"}` {
		t.Errorf("unexpected second live payload: %s", got)
	}
}

func TestGateway_PingPong(t *testing.T) {
	sub := newFakeSub()
	srv, _ := newTestGateway(t, sub, &fakeLister{})

	conn := dial(t, srv, "/ws/workspace/ws-1")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if got := readText(t, conn); got != "pong" {
		t.Errorf("expected pong, got %s", got)
	}
}

func TestGateway_RunStreamRelaysChunks(t *testing.T) {
	sub := newFakeSub()
	srv, _ := newTestGateway(t, sub, &fakeLister{})

	runID := uuid.New()
	conn := dial(t, srv, "/api/v1/runs/"+runID.String()+"/stream")

	chunk := `{"step_type":"generation","text":"hello","is_complete":false}`
	sub.events <- []byte(chunk)

	if got := readText(t, conn); got != chunk {
		t.Errorf("expected chunk relayed verbatim, got %s", got)
	}
}

func TestGateway_RunStreamInvalidID(t *testing.T) {
	sub := newFakeSub()
	srv, _ := newTestGateway(t, sub, &fakeLister{})

	resp, err := http.Get(srv.URL + "/api/v1/runs/not-a-uuid/stream")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGateway_SubscribeError(t *testing.T) {
	gw := New(Config{
		Subscribe: func(_ context.Context, _ string) (Subscription, error) {
			return nil, context.DeadlineExceeded
		},
		Runs: &fakeLister{},
	})
	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws/workspace/ws-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestGateway_RoomCount(t *testing.T) {
	sub := newFakeSub()
	srv, gw := newTestGateway(t, sub, &fakeLister{})

	conn := dial(t, srv, "/ws/workspace/ws-1")

	// Подключение учитывается в комнате
	deadline := time.After(2 * time.Second)
	for gw.RoomCount("workspace:ws-1") != 1 {
		select {
		case <-deadline:
			t.Fatal("room count did not reach 1")
		case <-time.After(10 * time.Millisecond):
		}
	}

	conn.Close()
	deadline = time.After(2 * time.Second)
	for gw.RoomCount("workspace:ws-1") != 0 {
		select {
		case <-deadline:
			t.Fatal("room count did not drop to 0")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
