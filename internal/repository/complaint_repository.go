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

// ComplaintRepository persists the complete complaint set.
type ComplaintRepository interface {
	LoadAll(ctx context.Context) ([]domain.Complaint, error)
	SaveAll(ctx context.Context, complaints []domain.Complaint) error
}

// ComplaintColumns is the fixed column order of the complaint table.
var ComplaintColumns = []string{
	"id", "name", "email", "phone", "subject", "description",
	"postalCode", "status", "createdAt", "updatedAt",
}

type csvComplaintRepository struct {
	blob    persistence.Blob
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewCSVComplaintRepository stores complaints as delimited text inside blob.
func NewCSVComplaintRepository(blob persistence.Blob, logger *zap.Logger, metrics *observability.Metrics) ComplaintRepository {
	return &csvComplaintRepository{blob: blob, logger: logger, metrics: metrics}
}

func (r *csvComplaintRepository) LoadAll(ctx context.Context) ([]domain.Complaint, error) {
	data, err := r.blob.Read(ctx)
	if errors.Is(err, persistence.ErrBlobNotFound) {
		return []domain.Complaint{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load complaints: %w", err)
	}

	_, rows, skipped := persistence.DecodeTable(data)
	for _, bad := range skipped {
		r.logger.Warn("dropping malformed complaint row", zap.Int("line", bad.Line), zap.Error(bad.Err))
	}

	complaints := make([]domain.Complaint, 0, len(rows))
	dropped := len(skipped)
	for i, row := range rows {
		id, err := parseRecordID(column(row, 0))
		if err != nil {
			dropped++
			r.logger.Warn("dropping malformed complaint row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		complaints = append(complaints, domain.Complaint{
			ID:          id,
			Name:        column(row, 1),
			Email:       column(row, 2),
			Phone:       optionalString(column(row, 3)),
			Subject:     column(row, 4),
			Description: column(row, 5),
			PostalCode:  optionalString(column(row, 6)),
			Status:      domain.ComplaintStatus(column(row, 7)),
			CreatedAt:   parseTime(column(row, 8)),
			UpdatedAt:   parseTime(column(row, 9)),
		})
	}
	r.metrics.RecordDroppedRows("complaints", dropped)
	return complaints, nil
}

func (r *csvComplaintRepository) SaveAll(ctx context.Context, complaints []domain.Complaint) error {
	rows := make([][]string, 0, len(complaints))
	for _, c := range complaints {
		rows = append(rows, []string{
			formatRecordID(c.ID),
			c.Name,
			c.Email,
			derefString(c.Phone),
			c.Subject,
			c.Description,
			derefString(c.PostalCode),
			string(c.Status),
			formatTime(c.CreatedAt),
			formatTime(c.UpdatedAt),
		})
	}
	if err := r.blob.Write(ctx, persistence.EncodeTable(ComplaintColumns, rows)); err != nil {
		return fmt.Errorf("save complaints: %w", err)
	}
	return nil
}
