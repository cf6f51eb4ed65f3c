package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// ComplaintService coordinates complaint workflows.
type ComplaintService struct {
	mu         sync.Mutex
	complaints repository.ComplaintRepository
	dispatcher events.Dispatcher
	validator  *inputValidator
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Clock         func() time.Time
}

// ComplaintCreateInput describes complaint creation payload.
type ComplaintCreateInput struct {
	Name        string `validate:"required"`
	Email       string `validate:"required,simple_email"`
	Phone       string
	PostalCode  string
	Subject     string `validate:"required"`
	Description string `validate:"required"`
}

// ComplaintFilter holds optional equality filters, combined with AND.
type ComplaintFilter struct {
	Status domain.ComplaintStatus
	Email  string
}

// Matches reports whether the complaint passes every set filter.
func (f ComplaintFilter) Matches(c *domain.Complaint) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Email != "" && c.Email != f.Email {
		return false
	}
	return true
}

// ParseComplaintID reads a numeric complaint id; anything else resolves to no
// complaint.
func ParseComplaintID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		dispatcher: deps.Dispatcher,
		validator:  newInputValidator(),
		logger:     logger,
		metrics:    deps.Metrics,
		now:        clock,
	}
}

// CreateComplaint validates input, allocates the next id and persists it.
func (s *ComplaintService) CreateComplaint(ctx context.Context, input ComplaintCreateInput) (*domain.Complaint, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)

	if err := s.validator.check(input, "name, email, subject and description are required"); err != nil {
		return nil, err
	}

	complaint, err := s.insert(ctx, input)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLifecycle("complaints", "created")
	s.logger.Info("complaint created", zap.Int64("complaint_id", complaint.ID))

	s.publishEvent(ctx, events.Event{
		Type:      events.EventComplaintCreated,
		RecordID:  complaint.ID,
		Reference: strconv.FormatInt(complaint.ID, 10),
		Actor:     &events.Actor{Name: complaint.Name, Email: complaint.Email},
		Payload: events.ComplaintCreatedPayload{
			Subject:    complaint.Subject,
			PostalCode: complaint.PostalCode,
		},
	})
	return complaint, nil
}

func (s *ComplaintService) insert(ctx context.Context, input ComplaintCreateInput) (*domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	complaints, err := s.complaints.LoadAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now()
	complaint := domain.Complaint{
		ID:          nextID(complaints, func(c *domain.Complaint) int64 { return c.ID }),
		Name:        input.Name,
		Email:       input.Email,
		Phone:       optional(input.Phone),
		PostalCode:  optional(input.PostalCode),
		Subject:     input.Subject,
		Description: input.Description,
		Status:      domain.ComplaintStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.complaints.SaveAll(ctx, append(complaints, complaint)); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &complaint, nil
}

// ListComplaints returns every complaint passing the filter. A store that
// cannot be read is logged and reported as empty.
func (s *ComplaintService) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	complaints := s.loadForRead(ctx)
	result := make([]domain.Complaint, 0, len(complaints))
	for i := range complaints {
		if filter.Matches(&complaints[i]) {
			result = append(result, complaints[i])
		}
	}
	return result, nil
}

// GetComplaint resolves a complaint by numeric id.
func (s *ComplaintService) GetComplaint(ctx context.Context, id int64) (*domain.Complaint, error) {
	complaints := s.loadForRead(ctx)
	for i := range complaints {
		if complaints[i].ID == id {
			complaint := complaints[i]
			return &complaint, nil
		}
	}
	return nil, complaintNotFound(id)
}

// UpdateStatus replaces the complaint status.
func (s *ComplaintService) UpdateStatus(ctx context.Context, id int64, status domain.ComplaintStatus) (*domain.Complaint, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("status must be one of: %s", joinValues(domain.ComplaintStatuses)),
			map[string]any{"field": "status"},
		)
	}

	complaint, oldStatus, err := s.replaceStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLifecycle("complaints", "status_changed")

	s.publishEvent(ctx, events.Event{
		Type:      events.EventComplaintStatusChanged,
		RecordID:  complaint.ID,
		Reference: strconv.FormatInt(complaint.ID, 10),
		Payload: events.StatusChangedPayload{
			OldStatus: string(oldStatus),
			NewStatus: string(status),
		},
	})
	return complaint, nil
}

func (s *ComplaintService) replaceStatus(ctx context.Context, id int64, status domain.ComplaintStatus) (*domain.Complaint, domain.ComplaintStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	complaints, err := s.complaints.LoadAll(ctx)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	for i := range complaints {
		if complaints[i].ID != id {
			continue
		}
		updated := complaints[i]
		oldStatus := updated.Status
		updated.Status = status
		updated.UpdatedAt = s.now()
		complaints[i] = updated
		if err := s.complaints.SaveAll(ctx, complaints); err != nil {
			return nil, "", apperrors.NewInternalError(err)
		}
		return &updated, oldStatus, nil
	}
	return nil, "", complaintNotFound(id)
}

func (s *ComplaintService) loadForRead(ctx context.Context) []domain.Complaint {
	complaints, err := s.complaints.LoadAll(ctx)
	if err != nil {
		s.logger.Error("complaint store unreadable; serving empty set", zap.Error(err))
		return []domain.Complaint{}
	}
	return complaints
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func complaintNotFound(id int64) error {
	return apperrors.NewNotFound("complaint", map[string]any{"id": strconv.FormatInt(id, 10)})
}
