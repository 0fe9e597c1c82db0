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

// FlowRepo — репозиторий для работы с flows.
type FlowRepo struct {
	pool *pgxpool.Pool
}

// NewFlowRepo создаёт новый FlowRepo.
func NewFlowRepo(pool *pgxpool.Pool) *FlowRepo {
	return &FlowRepo{pool: pool}
}

// Create создаёт новый flow.
func (r *FlowRepo) Create(ctx context.Context, flow *domain.Flow) error {
	definitionJSON, err := json.Marshal(flow.Definition)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	query := `
		INSERT INTO flows (id, name, description, definition, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		flow.ID,
		flow.Name,
		nullString(flow.Description),
		definitionJSON,
		flow.Tags,
		flow.CreatedAt,
		flow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert flow: %w", err)
	}
	return nil
}

// GetByID возвращает flow по ID.
func (r *FlowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flow, error) {
	query := `
		SELECT id, name, description, definition, tags, created_at, updated_at
		FROM flows
		WHERE id = $1
	`
	return r.scanFlow(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает flow по имени.
func (r *FlowRepo) GetByName(ctx context.Context, name string) (*domain.Flow, error) {
	query := `
		SELECT id, name, description, definition, tags, created_at, updated_at
		FROM flows
		WHERE name = $1
	`
	return r.scanFlow(r.pool.QueryRow(ctx, query, name))
}

// List возвращает список всех flows.
func (r *FlowRepo) List(ctx context.Context) ([]domain.Flow, error) {
	query := `
		SELECT id, name, description, definition, tags, created_at, updated_at
		FROM flows
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	var flows []domain.Flow
	for rows.Next() {
		flow, err := r.scanFlowFromRows(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, *flow)
	}
	return flows, rows.Err()
}

// Update обновляет flow.
func (r *FlowRepo) Update(ctx context.Context, flow *domain.Flow) error {
	definitionJSON, err := json.Marshal(flow.Definition)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	query := `
		UPDATE flows
		SET name = $2, description = $3, definition = $4, tags = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		flow.ID,
		flow.Name,
		nullString(flow.Description),
		definitionJSON,
		flow.Tags,
		flow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет flow (каскадно удалит executions и schedules).
func (r *FlowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func (r *FlowRepo) scanFlow(row pgx.Row) (*domain.Flow, error) {
	var flow domain.Flow
	var description *string
	var definitionJSON []byte

	err := row.Scan(
		&flow.ID,
		&flow.Name,
		&description,
		&definitionJSON,
		&flow.Tags,
		&flow.CreatedAt,
		&flow.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan flow: %w", err)
	}

	if description != nil {
		flow.Description = *description
	}
	if err := json.Unmarshal(definitionJSON, &flow.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	return &flow, nil
}

func (r *FlowRepo) scanFlowFromRows(rows pgx.Rows) (*domain.Flow, error) {
	var flow domain.Flow
	var description *string
	var definitionJSON []byte

	err := rows.Scan(
		&flow.ID,
		&flow.Name,
		&description,
		&definitionJSON,
		&flow.Tags,
		&flow.CreatedAt,
		&flow.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan flow: %w", err)
	}

	if description != nil {
		flow.Description = *description
	}
	if err := json.Unmarshal(definitionJSON, &flow.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	return &flow, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullInt возвращает nil для нулевого int.
func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
