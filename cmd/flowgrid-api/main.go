// Flowgrid API — управляющая плоскость оркестратора.
//
// Процесс объединяет REST API, движок выполнения и WebSocket-поток
// событий: движок живёт в процессе API, события раздаются через Hub
// без внешнего брокера. Терминальные снимки executions пишутся в
// PostgreSQL и (если доступен RabbitMQ) публикуются для архиватора.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Flowgrid/internal/agent"
	"github.com/shaiso/Flowgrid/internal/api"
	"github.com/shaiso/Flowgrid/internal/engine"
	"github.com/shaiso/Flowgrid/internal/hub"
	"github.com/shaiso/Flowgrid/internal/mq"
	"github.com/shaiso/Flowgrid/internal/repo"
	"github.com/shaiso/Flowgrid/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("flowgrid-api")
	logger.Info("starting flowgrid-api")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	flowRepo := repo.NewFlowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// RabbitMQ опционален: без него терминальные снимки просто
	// не уходят в архиватор
	var publisher *mq.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, execution archive disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Журнал событий
	eventHub := hub.New(hub.Config{
		Logger: logger,
	})

	// Встроенные агенты; каталог и движок используют один реестр
	registry := agent.NewDefaultRegistry()

	// Движок выполнения
	eng := engine.New(engine.Config{
		Registry: registry,
		Events:   eventHub,
		History: &historyFanout{
			executionRepo: executionRepo,
			publisher:     publisher,
			logger:        logger,
		},
		Logger: logger,
	})

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		FlowRepo:      flowRepo,
		ExecutionRepo: executionRepo,
		ScheduleRepo:  scheduleRepo,
		Registry:      registry,
		Engine:        eng,
		Hub:           eventHub,
		Logger:        logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

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

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Отменяем активные executions и ждём завершения драйверов
	eng.Stop()

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
