package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/persistence"
)

type pgTicketRepository struct {
	pg *persistence.Postgres
}

// NewPostgresTicketRepository stores tickets in the tickets table.
func NewPostgresTicketRepository(pg *persistence.Postgres) TicketRepository {
	return &pgTicketRepository{pg: pg}
}

func (r *pgTicketRepository) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT id, number, name, email, phone, category, subject, description,
               priority, status, messages, opened_at, updated_at
        FROM tickets ORDER BY id ASC`
	pool := r.pg.PoolHandle()
	if pool == nil {
		return nil, persistence.ErrPostgresUnavailable
	}
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// SaveAll replaces the table contents inside one transaction.
func (r *pgTicketRepository) SaveAll(ctx context.Context, tickets []domain.Ticket) error {
	const insert = `
        INSERT INTO tickets (id, number, name, email, phone, category, subject, description,
                             priority, status, messages, opened_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::jsonb,$12,$13)`

	batch := &pgx.Batch{}
	for i := range tickets {
		t := &tickets[i]
		messages, err := encodeMessages(t.Messages)
		if err != nil {
			return fmt.Errorf("encode ticket %d: %w", t.ID, err)
		}
		batch.Queue(insert,
			t.ID,
			t.Number,
			t.Name,
			t.Email,
			t.Phone,
			string(t.Category),
			t.Subject,
			t.Description,
			string(t.Priority),
			string(t.Status),
			string(messages),
			t.OpenedAt,
			t.UpdatedAt,
		)
	}
	return r.pg.WithTx(ctx, func(tx pgx.Tx) error {
		return replaceTable(ctx, tx, "tickets", batch)
	})
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var (
			ticket   domain.Ticket
			messages []byte
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.Name,
			&ticket.Email,
			&ticket.Phone,
			&ticket.Category,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Priority,
			&ticket.Status,
			&messages,
			&ticket.OpenedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		decoded, err := decodeMessages(messages)
		if err != nil {
			return nil, fmt.Errorf("ticket %d messages: %w", ticket.ID, err)
		}
		ticket.Messages = decoded
		ticket.OpenedAt = ticket.OpenedAt.UTC()
		ticket.UpdatedAt = ticket.UpdatedAt.UTC()
		result = append(result, ticket)
	}
	return result, rows.Err()
}
