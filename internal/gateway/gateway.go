package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shaiso/Synapse/internal/bus"
	"github.com/shaiso/Synapse/internal/domain"
)

// Subscription — активная подписка на канал событий.
type Subscription interface {
	Events() <-chan []byte
	Close() error
}

// SubscribeFunc открывает подписку на канал шины.
type SubscribeFunc func(ctx context.Context, channel string) (Subscription, error)

// ActiveLister — snapshot активных runs workspace'а.
type ActiveLister interface {
	ListActive(ctx context.Context, workspaceID string) ([]domain.Run, error)
}

// Gateway раздаёт события runs по WebSocket.
//
// Две комнаты:
//   - /ws/workspace/{id} — события workspace'а; при подключении клиент
//     получает snapshot активных runs, затем live-поток
//   - /api/v1/runs/{id}/stream — чанки потокового текста одного run'а
//
// Gateway — чистый ретранслятор: payload'ы шины уходят клиенту байт в
// байт, в порядке получения. Истории нет: пропущенное до подключения
// не доигрывается.
type Gateway struct {
	subscribe SubscribeFunc
	runs      ActiveLister
	upgrader  websocket.Upgrader
	logger    *slog.Logger

	mu    sync.Mutex
	rooms map[string]int
}

// Config — конфигурация Gateway.
type Config struct {
	Subscribe SubscribeFunc
	Runs      ActiveLister
	Logger    *slog.Logger

	// CheckOrigin — проверка Origin при upgrade (default: разрешено всё).
	CheckOrigin func(r *http.Request) bool
}

// New создаёт новый Gateway.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Gateway{
		subscribe: cfg.Subscribe,
		runs:      cfg.Runs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
		rooms:  make(map[string]int),
	}
}

// RegisterRoutes регистрирует WebSocket-маршруты.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/workspace/{id}", g.handleWorkspace)
	mux.HandleFunc("GET /api/v1/runs/{id}/stream", g.handleRunStream)
}

// RoomCount возвращает число подключений к комнате.
func (g *Gateway) RoomCount(room string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rooms[room]
}

// handleWorkspace обслуживает workspace-комнату: snapshot активных runs,
// затем live-поток событий канала.
func (g *Gateway) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("id")
	logger := g.logger.With("workspace_id", workspaceID)
	ctx := r.Context()

	// Подписка до snapshot'а: события, пришедшие во время выборки,
	// буферизуются в канале подписки и не теряются.
	sub, err := g.subscribe(ctx, bus.WorkspaceChannel(workspaceID))
	if err != nil {
		logger.Error("failed to subscribe to workspace channel", "error", err)
		http.Error(w, "subscription unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	room := "workspace:" + workspaceID
	g.join(room)
	defer g.leave(room)
	logger.Debug("client connected", "room", room)

	wc := &wsConn{conn: conn}

	// Snapshot активных runs — единственный способ восстановить
	// состояние: каналы не хранят историю.
	if err := g.sendSnapshot(ctx, wc, workspaceID); err != nil {
		logger.Debug("failed to send snapshot", "error", err)
		return
	}

	g.serve(ctx, wc, sub, logger)
	logger.Debug("client disconnected", "room", room)
}

// handleRunStream обслуживает run-комнату: чанки потокового текста.
func (g *Gateway) handleRunStream(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}
	logger := g.logger.With("run_id", runID)
	ctx := r.Context()

	sub, err := g.subscribe(ctx, bus.RunChannel(runID))
	if err != nil {
		logger.Error("failed to subscribe to run channel", "error", err)
		http.Error(w, "subscription unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	room := "run:" + runID.String()
	g.join(room)
	defer g.leave(room)

	g.serve(ctx, &wsConn{conn: conn}, sub, logger)
}

// sendSnapshot отправляет active_run для каждого активного run'а workspace'а.
func (g *Gateway) sendSnapshot(ctx context.Context, wc *wsConn, workspaceID string) error {
	runs, err := g.runs.ListActive(ctx, workspaceID)
	if err != nil {
		// Snapshot best-effort: клиент получит live-поток без него.
		g.logger.Warn("failed to list active runs for snapshot",
			"workspace_id", workspaceID,
			"error", err,
		)
		return nil
	}

	for i := range runs {
		payload, err := json.Marshal(domain.NewActiveRunEvent(&runs[i]))
		if err != nil {
			return err
		}
		if err := wc.write(payload); err != nil {
			return err
		}
	}
	return nil
}

// serve гоняет соединение до обрыва: reader (ping/pong и обнаружение
// разрыва) и relay (канал -> клиент) в паре горутин, связанных общим
// контекстом. Падение любой из них гасит вторую.
func (g *Gateway) serve(ctx context.Context, wc *wsConn, sub Subscription, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		g.readLoop(wc, logger)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		g.relayLoop(ctx, wc, sub, logger)
	}()

	// Разбудить readLoop при отмене контекста: ReadMessage блокирует.
	go func() {
		<-ctx.Done()
		wc.conn.Close()
	}()

	wg.Wait()
}

// readLoop читает входящие кадры. Текстовый "ping" получает "pong",
// остальное игнорируется. Возврат — соединение оборвано.
func (g *Gateway) readLoop(wc *wsConn, logger *slog.Logger) {
	for {
		msgType, payload, err := wc.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.TextMessage && string(payload) == "ping" {
			if err := wc.write([]byte("pong")); err != nil {
				logger.Debug("failed to write pong", "error", err)
				return
			}
		}
	}
}

// relayLoop ретранслирует payload'ы подписки клиенту без изменений.
func (g *Gateway) relayLoop(ctx context.Context, wc *wsConn, sub Subscription, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := wc.write(payload); err != nil {
				logger.Debug("failed to relay event", "error", err)
				return
			}
		}
	}
}

func (g *Gateway) join(room string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rooms[room]++
}

func (g *Gateway) leave(room string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rooms[room]--
	if g.rooms[room] <= 0 {
		delete(g.rooms, room)
	}
}

// wsConn сериализует записи в соединение: у gorilla может писать
// только одна горутина, а пишут и relay, и pong из reader'а.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
