package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-api/internal/models"
)

const batchSummarySelect = `SELECT b.id, b.name, b.created_at, b.updated_at,
	(SELECT COUNT(*) FROM users u WHERE u.batch_id = b.id) AS students_count,
	(SELECT COUNT(*) FROM courses c WHERE c.batch_id = b.id) AS courses_count
FROM batches b`

// BatchRepository handles persistence of batches.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns all batches ordered by name with dependent counts.
func (r *BatchRepository) List(ctx context.Context) ([]models.BatchSummary, error) {
	query := batchSummarySelect + ` ORDER BY b.name ASC`
	var batches []models.BatchSummary
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// FindByID returns a batch with dependent counts.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.BatchSummary, error) {
	query := batchSummarySelect + ` WHERE b.id = $1`
	var batch models.BatchSummary
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return &batch, nil
}

// NameExists reports whether another batch already uses the name.
func (r *BatchRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM batches WHERE LOWER(name) = LOWER($1) AND id::text <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check batch name: %w", err)
	}
	return exists, nil
}

// Create inserts a batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	const query = `INSERT INTO batches (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update renames a batch.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// Delete removes a batch.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}
