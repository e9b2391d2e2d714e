// Synapse Worker — выполняет runs из очереди.
//
// Worker:
//   - Блокирующе забирает jobs из Redis-очереди
//   - Прогоняет run через AI-конвейер (внешний HTTP-сервис)
//   - Транслирует промежуточные события в шину и реестр
//   - Фиксирует терминальный статус (completed, failed)
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Synapse/internal/bus"
	"github.com/shaiso/Synapse/internal/pipeline"
	"github.com/shaiso/Synapse/internal/repo"
	"github.com/shaiso/Synapse/internal/telemetry"
	"github.com/shaiso/Synapse/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting synapse-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Redis: без очереди воркеру делать нечего
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

	// AI-конвейер
	pipelineURL := os.Getenv("PIPELINE_URL")
	if pipelineURL == "" {
		pipelineURL = "http://localhost:8090"
	}
	executor := pipeline.NewHTTPExecutor(pipelineURL)

	// Retrieval опционален
	var retriever pipeline.Retriever
	if retrievalURL := os.Getenv("RETRIEVAL_URL"); retrievalURL != "" {
		retriever = pipeline.NewHTTPRetriever(retrievalURL)
	} else {
		logger.Info("RETRIEVAL_URL not set, running without retrieval")
	}

	concurrency := 0
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		concurrency, _ = strconv.Atoi(v)
	}

	// Создаём worker
	w := worker.New(worker.Config{
		Queue:       queue,
		Runs:        repo.NewRunRepo(pool),
		Messages:    repo.NewMessageRepo(pool),
		NodeStates:  repo.NewNodeStateRepo(pool),
		Traces:      repo.NewTraceRepo(pool),
		Events:      publisher,
		Executor:    executor,
		Retriever:   retriever,
		Concurrency: concurrency,
		Logger:      logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()
	logger.Info("synapse-worker stopped")
}
