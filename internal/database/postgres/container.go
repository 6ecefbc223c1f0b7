// Package postgres implements the container repository on PostgreSQL.
// Container contents are stored as JSONB in their structured form, so
// the rows stay queryable with the usual JSON operators.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/stockpile/internal/domain"
	"github.com/osse101/stockpile/internal/repository"
	"github.com/osse101/stockpile/internal/tag"
)

const (
	queryCreateContainer = `
		INSERT INTO containers (name, slot_count, items)
		VALUES ($1, $2, $3)
		RETURNING container_id`

	queryGetContainer = `
		SELECT container_id, name, slot_count, items, created_at, updated_at
		FROM containers
		WHERE container_id = $1`

	querySaveContainer = `
		UPDATE containers
		SET items = $2, updated_at = NOW()
		WHERE container_id = $1`

	queryDeleteContainer = `
		DELETE FROM containers
		WHERE container_id = $1`

	queryListContainers = `
		SELECT container_id, name, slot_count, created_at, updated_at
		FROM containers
		ORDER BY created_at`
)

// ContainerRepository persists containers in PostgreSQL.
type ContainerRepository struct {
	pool *pgxpool.Pool
}

// NewContainerRepository creates a new PostgreSQL container repository.
func NewContainerRepository(pool *pgxpool.Pool) *ContainerRepository {
	return &ContainerRepository{pool: pool}
}

// Create inserts a new container row and returns its generated ID.
func (r *ContainerRepository) Create(ctx context.Context, name string, slotCount int, contents *tag.Compound) (string, error) {
	data, err := tag.Encode(contents)
	if err != nil {
		return "", fmt.Errorf("failed to encode container contents: %w", err)
	}

	var id string
	err = r.pool.QueryRow(ctx, queryCreateContainer, name, slotCount, data).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return id, nil
}

// Get loads one container and decodes its structured contents.
func (r *ContainerRepository) Get(ctx context.Context, id string) (*repository.ContainerRecord, *tag.Compound, error) {
	var (
		rec  repository.ContainerRecord
		data []byte
	)
	err := r.pool.QueryRow(ctx, queryGetContainer, id).Scan(
		&rec.ID, &rec.Name, &rec.SlotCount, &data, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("container %s: %w", id, domain.ErrContainerNotFound)
		}
		return nil, nil, fmt.Errorf("failed to get container: %w", err)
	}

	contents, err := tag.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode container contents: %w", err)
	}
	return &rec, contents, nil
}

// Save replaces the container's stored contents.
func (r *ContainerRepository) Save(ctx context.Context, id string, contents *tag.Compound) error {
	data, err := tag.Encode(contents)
	if err != nil {
		return fmt.Errorf("failed to encode container contents: %w", err)
	}

	cmd, err := r.pool.Exec(ctx, querySaveContainer, id, data)
	if err != nil {
		return fmt.Errorf("failed to save container: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("container %s: %w", id, domain.ErrContainerNotFound)
	}
	return nil
}

// Delete removes the container row.
func (r *ContainerRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, queryDeleteContainer, id)
	if err != nil {
		return fmt.Errorf("failed to delete container: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("container %s: %w", id, domain.ErrContainerNotFound)
	}
	return nil
}

// List returns metadata for every container, oldest first.
func (r *ContainerRepository) List(ctx context.Context) ([]repository.ContainerRecord, error) {
	rows, err := r.pool.Query(ctx, queryListContainers)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	defer rows.Close()

	var records []repository.ContainerRecord
	for rows.Next() {
		var rec repository.ContainerRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.SlotCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan container row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read container rows: %w", err)
	}
	return records, nil
}
