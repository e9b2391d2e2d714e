// Synapse API — REST и WebSocket сервис координации runs.
//
// API:
//   - Создаёт runs и ставит jobs в очередь воркеров
//   - Отдаёт состояние runs, сообщения, состояния узлов и traces
//   - Отменяет активные runs
//   - Раздаёт live-события по WebSocket (workspace- и run-комнаты)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Synapse/internal/api"
	"github.com/shaiso/Synapse/internal/bus"
	"github.com/shaiso/Synapse/internal/control"
	"github.com/shaiso/Synapse/internal/gateway"
	"github.com/shaiso/Synapse/internal/repo"
	"github.com/shaiso/Synapse/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synapse_api_http_requests_total",
		Help: "Total HTTP requests handled by synapse_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting synapse-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Подключаемся к Redis (очередь и шина событий)
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = bus.DefaultURL()
	}
	rdb, err := bus.Connect(ctx, redisURL, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	queue := bus.NewQueue(rdb, bus.QueueJobs, logger)
	publisher := bus.NewPublisher(rdb, logger)
	subscriber := bus.NewSubscriber(rdb, logger)

	// Репозитории
	runRepo := repo.NewRunRepo(pool)
	messageRepo := repo.NewMessageRepo(pool)
	nodeStateRepo := repo.NewNodeStateRepo(pool)
	traceRepo := repo.NewTraceRepo(pool)

	// Контроллер отмены
	controller := control.New(runRepo, publisher, logger)

	// API handler
	handler := api.NewHandler(api.Config{
		Runs:       runRepo,
		Messages:   messageRepo,
		NodeStates: nodeStateRepo,
		Traces:     traceRepo,
		Queue:      queue,
		Canceller:  controller,
		Logger:     logger,
	})

	// WebSocket gateway
	gw := gateway.New(gateway.Config{
		Subscribe: func(ctx context.Context, channel string) (gateway.Subscription, error) {
			return subscriber.Subscribe(ctx, channel)
		},
		Runs:   runRepo,
		Logger: logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Маршруты REST и WebSocket
	handler.RegisterRoutes(mux)
	gw.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
