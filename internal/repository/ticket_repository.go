package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
)

// TicketRepository persists the complete ticket set. Every mutation is a full
// LoadAll, an in-memory change and a full SaveAll.
type TicketRepository interface {
	LoadAll(ctx context.Context) ([]domain.Ticket, error)
	SaveAll(ctx context.Context, tickets []domain.Ticket) error
}

// TicketColumns is the fixed column order of the ticket table.
var TicketColumns = []string{
	"id", "number", "name", "email", "phone", "category", "subject",
	"description", "priority", "status", "messages", "openedAt", "updatedAt",
}

type csvTicketRepository struct {
	blob    persistence.Blob
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewCSVTicketRepository stores tickets as delimited text inside blob.
func NewCSVTicketRepository(blob persistence.Blob, logger *zap.Logger, metrics *observability.Metrics) TicketRepository {
	return &csvTicketRepository{blob: blob, logger: logger, metrics: metrics}
}

func (r *csvTicketRepository) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	data, err := r.blob.Read(ctx)
	if errors.Is(err, persistence.ErrBlobNotFound) {
		return []domain.Ticket{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tickets: %w", err)
	}

	_, rows, skipped := persistence.DecodeTable(data)
	for _, bad := range skipped {
		r.logger.Warn("dropping malformed ticket row", zap.Int("line", bad.Line), zap.Error(bad.Err))
	}

	tickets := make([]domain.Ticket, 0, len(rows))
	dropped := len(skipped)
	for i, row := range rows {
		ticket, err := decodeTicketRow(row)
		if err != nil {
			dropped++
			r.logger.Warn("dropping malformed ticket row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		tickets = append(tickets, ticket)
	}
	r.metrics.RecordDroppedRows("tickets", dropped)
	return tickets, nil
}

func (r *csvTicketRepository) SaveAll(ctx context.Context, tickets []domain.Ticket) error {
	rows := make([][]string, 0, len(tickets))
	for i := range tickets {
		row, err := encodeTicketRow(&tickets[i])
		if err != nil {
			return fmt.Errorf("encode ticket %d: %w", tickets[i].ID, err)
		}
		rows = append(rows, row)
	}
	if err := r.blob.Write(ctx, persistence.EncodeTable(TicketColumns, rows)); err != nil {
		return fmt.Errorf("save tickets: %w", err)
	}
	return nil
}

func encodeTicketRow(t *domain.Ticket) ([]string, error) {
	messages, err := encodeMessages(t.Messages)
	if err != nil {
		return nil, err
	}
	return []string{
		formatRecordID(t.ID),
		t.Number,
		t.Name,
		t.Email,
		derefString(t.Phone),
		string(t.Category),
		t.Subject,
		t.Description,
		string(t.Priority),
		string(t.Status),
		string(messages),
		formatTime(t.OpenedAt),
		formatTime(t.UpdatedAt),
	}, nil
}

func decodeTicketRow(row []string) (domain.Ticket, error) {
	id, err := parseRecordID(column(row, 0))
	if err != nil {
		return domain.Ticket{}, err
	}
	messages, err := decodeMessages([]byte(column(row, 10)))
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("ticket %d messages: %w", id, err)
	}
	return domain.Ticket{
		ID:          id,
		Number:      column(row, 1),
		Name:        column(row, 2),
		Email:       column(row, 3),
		Phone:       optionalString(column(row, 4)),
		Category:    domain.TicketCategory(column(row, 5)),
		Subject:     column(row, 6),
		Description: column(row, 7),
		Priority:    domain.TicketPriority(column(row, 8)),
		Status:      domain.TicketStatus(column(row, 9)),
		Messages:    messages,
		OpenedAt:    parseTime(column(row, 11)),
		UpdatedAt:   parseTime(column(row, 12)),
	}, nil
}
