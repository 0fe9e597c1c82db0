// Flowgrid Scheduler — запускает executions по расписанию.
//
// Scheduler:
//   - Каждую секунду выбирает due schedules из PostgreSQL
//   - Запускает execution через HTTP API (та же валидация,
//     что и при ручном запуске)
//   - Пересчитывает next_due_at по cron или интервалу
//
// Несколько реплик конкурируют за advisory lock в PostgreSQL:
// тики выполняет только лидер.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Flowgrid/internal/repo"
	"github.com/shaiso/Flowgrid/internal/scheduler"
	"github.com/shaiso/Flowgrid/internal/telemetry"
)

const schedLockKey int64 = 727274

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("flowgrid-scheduler")
	logger.Info("starting flowgrid-scheduler")

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
	logger.Info("connected to database")

	apiURL := os.Getenv("FLOWGRID_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	sched := scheduler.New(scheduler.Config{
		ScheduleRepo: repo.NewScheduleRepo(pool),
		FlowRepo:     repo.NewFlowRepo(pool),
		Starter:      newAPIStarter(apiURL),
		Logger:       logger,
	})

	// scheduler loop
	go func() {
		tk := time.NewTicker(1 * time.Second)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером (или подтвердить лидерство)
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
						logger.Error("advisory lock error", "error", err)
						continue
					}
					hasLock = ok
				}

				if !hasLock {
					// не лидер — пропускаем тик
					continue
				}

				if err := sched.Tick(ctx); err != nil {
					logger.Error("tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("flowgrid-scheduler stopped")
}
