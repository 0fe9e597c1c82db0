package main

import (
	"context"
	"log/slog"

	"github.com/shaiso/Flowgrid/internal/domain"
	"github.com/shaiso/Flowgrid/internal/mq"
	"github.com/shaiso/Flowgrid/internal/repo"
)

// historyFanout пишет терминальный снимок execution в PostgreSQL
// и публикует его в RabbitMQ для архиватора. Ошибка публикации
// не фатальна: снимок уже в таблице executions.
type historyFanout struct {
	executionRepo *repo.ExecutionRepo
	publisher     *mq.Publisher
	logger        *slog.Logger
}

func (h *historyFanout) Append(ctx context.Context, exec *domain.Execution) error {
	if err := h.executionRepo.Append(ctx, exec); err != nil {
		return err
	}

	if h.publisher != nil {
		if err := h.publisher.PublishExecutionFinished(ctx, exec); err != nil {
			h.logger.Warn("failed to publish finished execution",
				"execution_id", exec.ID, "error", err)
		}
	}
	return nil
}
