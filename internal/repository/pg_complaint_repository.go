package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/persistence"
)

type pgComplaintRepository struct {
	pg *persistence.Postgres
}

// NewPostgresComplaintRepository stores complaints in the complaints table.
func NewPostgresComplaintRepository(pg *persistence.Postgres) ComplaintRepository {
	return &pgComplaintRepository{pg: pg}
}

func (r *pgComplaintRepository) LoadAll(ctx context.Context) ([]domain.Complaint, error) {
	const query = `
        SELECT id, name, email, phone, subject, description, postal_code, status, created_at, updated_at
        FROM complaints ORDER BY id ASC`
	pool := r.pg.PoolHandle()
	if pool == nil {
		return nil, persistence.ErrPostgresUnavailable
	}
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load complaints: %w", err)
	}
	defer rows.Close()

	result := []domain.Complaint{}
	for rows.Next() {
		var c domain.Complaint
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Email,
			&c.Phone,
			&c.Subject,
			&c.Description,
			&c.PostalCode,
			&c.Status,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		result = append(result, c)
	}
	return result, rows.Err()
}

// SaveAll replaces the table contents inside one transaction.
func (r *pgComplaintRepository) SaveAll(ctx context.Context, complaints []domain.Complaint) error {
	const insert = `
        INSERT INTO complaints (id, name, email, phone, subject, description, postal_code, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	batch := &pgx.Batch{}
	for _, c := range complaints {
		batch.Queue(insert,
			c.ID,
			c.Name,
			c.Email,
			c.Phone,
			c.Subject,
			c.Description,
			c.PostalCode,
			string(c.Status),
			c.CreatedAt,
			c.UpdatedAt,
		)
	}
	return r.pg.WithTx(ctx, func(tx pgx.Tx) error {
		return replaceTable(ctx, tx, "complaints", batch)
	})
}
