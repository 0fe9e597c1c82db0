package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Flowgrid/internal/domain"
)

// ArchiveRepo — репозиторий долговременного архива executions.
//
// Архив пишет Archiver из очереди executions.finished; запись
// идемпотентна (повторная доставка снимка не создаёт дубликата).
type ArchiveRepo struct {
	pool *pgxpool.Pool
}

// NewArchiveRepo создаёт новый ArchiveRepo.
func NewArchiveRepo(pool *pgxpool.Pool) *ArchiveRepo {
	return &ArchiveRepo{pool: pool}
}

// Store записывает терминальный снимок в архив.
func (r *ArchiveRepo) Store(ctx context.Context, exec *domain.Execution) error {
	snapshotJSON, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO executions_archive (id, flow_id, status, snapshot, archived_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query, exec.ID, exec.FlowID, exec.Status, snapshotJSON)
	if err != nil {
		return fmt.Errorf("insert archive: %w", err)
	}
	return nil
}
