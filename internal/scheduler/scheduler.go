package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/domain"
	"github.com/shaiso/Flowgrid/internal/repo"
)

// Starter запускает execution для flow.
//
// В проде это HTTP клиент к flowgrid-api: движок живёт в процессе
// API, и запуск по расписанию идёт через ту же валидацию, что и
// ручной запуск из редактора.
type Starter interface {
	StartExecution(ctx context.Context, flowID uuid.UUID) (uuid.UUID, error)
}

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	scheduleRepo *repo.ScheduleRepo
	flowRepo     *repo.FlowRepo
	starter      Starter
	logger       *slog.Logger
	batchSize    int
}

// Config — конфигурация Scheduler.
type Config struct {
	ScheduleRepo *repo.ScheduleRepo
	FlowRepo     *repo.FlowRepo
	Starter      Starter
	Logger       *slog.Logger
	BatchSize    int // количество schedules за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Scheduler{
		scheduleRepo: cfg.ScheduleRepo,
		flowRepo:     cfg.FlowRepo,
		starter:      cfg.Starter,
		logger:       cfg.Logger,
		batchSize:    batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого schedule запускает execution
// 3. Обновляет next_due_at
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	schedules, err := s.scheduleRepo.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, started int
	for i := range schedules {
		sched := &schedules[i]

		executionStarted, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if executionStarted {
			started++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"executions_started", started,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если execution был запущен.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	// Flow мог быть удалён после создания schedule
	if _, err := s.flowRepo.GetByID(ctx, sched.FlowID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("flow not found for schedule, disabling",
				"schedule_id", sched.ID,
				"flow_id", sched.FlowID,
			)
			if err := s.scheduleRepo.SetEnabled(ctx, sched.ID, false); err != nil {
				return false, fmt.Errorf("disable orphan schedule: %w", err)
			}
			return false, nil
		}
		return false, fmt.Errorf("get flow: %w", err)
	}

	executionID, err := s.starter.StartExecution(ctx, sched.FlowID)
	if err != nil {
		// Невалидный граф или недоступный API: next_due_at двигаем
		// всё равно, чтобы schedule не молотил каждый тик.
		s.logger.Warn("failed to start scheduled execution",
			"schedule_id", sched.ID,
			"flow_id", sched.FlowID,
			"error", err,
		)

		nextDue, calcErr := NextDue(sched, now)
		if calcErr != nil {
			return false, calcErr
		}
		sched.NextDueAt = &nextDue
		sched.UpdatedAt = now
		if err := s.scheduleRepo.Update(ctx, sched); err != nil {
			return false, fmt.Errorf("update schedule: %w", err)
		}
		return false, nil
	}

	s.logger.Info("started execution from schedule",
		"execution_id", executionID,
		"schedule_id", sched.ID,
		"schedule_name", sched.Name,
		"flow_id", sched.FlowID,
	)

	nextDue, err := NextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		// Schedule некорректный — лучше не трогать next_due_at
		return true, nil
	}

	sched.RecordRun(executionID, nextDue)
	if err := s.scheduleRepo.Update(ctx, sched); err != nil {
		return true, fmt.Errorf("update schedule: %w", err)
	}

	return true, nil
}
