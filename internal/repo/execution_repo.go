package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Flowgrid/internal/domain"
)

// ExecutionRepo — репозиторий истории executions.
//
// История append-only: Engine записывает терминальный снимок один
// раз после завершения execution. Состояние выполняющихся executions
// живёт в памяти Engine и в БД не попадает.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Append записывает терминальный снимок execution.
func (r *ExecutionRepo) Append(ctx context.Context, exec *domain.Execution) error {
	nodeRunsJSON, err := json.Marshal(exec.NodeRuns)
	if err != nil {
		return fmt.Errorf("marshal node runs: %w", err)
	}

	query := `
		INSERT INTO executions (id, flow_id, status, node_runs, error, cancelled,
		                        created_at, started_at, ended_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.FlowID,
		exec.Status,
		nodeRunsJSON,
		nullString(exec.Error),
		exec.Cancelled,
		exec.CreatedAt,
		exec.StartedAt,
		exec.EndedAt,
		exec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, flow_id, status, node_runs, error, cancelled,
		       created_at, started_at, ended_at, duration_ms
		FROM executions
		WHERE id = $1
	`
	return r.scanExecution(r.pool.QueryRow(ctx, query, id))
}

// List возвращает страницу истории с полным количеством записей.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM executions
		WHERE ($1::uuid IS NULL OR flow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
	`, nullUUID(filter.FlowID), nullString(string(filter.Status))).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count executions: %w", err)
	}

	query := `
		SELECT id, flow_id, status, node_runs, error, cancelled,
		       created_at, started_at, ended_at, duration_ms
		FROM executions
		WHERE ($1::uuid IS NULL OR flow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.FlowID),
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		exec, err := r.scanExecutionFromRows(rows)
		if err != nil {
			return nil, 0, err
		}
		executions = append(executions, *exec)
	}
	return executions, total, rows.Err()
}

// --- Helpers ---

// ExecutionFilter — параметры фильтрации истории.
type ExecutionFilter struct {
	FlowID *uuid.UUID
	Status domain.ExecutionStatus
	Limit  int
	Offset int
}

func (r *ExecutionRepo) scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var nodeRunsJSON []byte
	var execError *string

	err := row.Scan(
		&exec.ID,
		&exec.FlowID,
		&exec.Status,
		&nodeRunsJSON,
		&execError,
		&exec.Cancelled,
		&exec.CreatedAt,
		&exec.StartedAt,
		&exec.EndedAt,
		&exec.DurationMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if execError != nil {
		exec.Error = *execError
	}
	if err := json.Unmarshal(nodeRunsJSON, &exec.NodeRuns); err != nil {
		return nil, fmt.Errorf("unmarshal node runs: %w", err)
	}
	return &exec, nil
}

func (r *ExecutionRepo) scanExecutionFromRows(rows pgx.Rows) (*domain.Execution, error) {
	var exec domain.Execution
	var nodeRunsJSON []byte
	var execError *string

	err := rows.Scan(
		&exec.ID,
		&exec.FlowID,
		&exec.Status,
		&nodeRunsJSON,
		&execError,
		&exec.Cancelled,
		&exec.CreatedAt,
		&exec.StartedAt,
		&exec.EndedAt,
		&exec.DurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if execError != nil {
		exec.Error = *execError
	}
	if err := json.Unmarshal(nodeRunsJSON, &exec.NodeRuns); err != nil {
		return nil, fmt.Errorf("unmarshal node runs: %w", err)
	}
	return &exec, nil
}
