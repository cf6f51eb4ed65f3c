package service

import (
	"context"
	"fmt"
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

// TicketService coordinates ticket workflows. Mutations are serialised so a
// read-modify-write cycle never interleaves with another one.
type TicketService struct {
	mu         sync.Mutex
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	validator  *inputValidator
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Name        string                `validate:"required"`
	Email       string                `validate:"required,simple_email"`
	Phone       string
	Category    domain.TicketCategory `validate:"required,ticket_category"`
	Subject     string                `validate:"required"`
	Description string                `validate:"required"`
	Priority    domain.TicketPriority
}

// TicketFilter holds optional equality filters, combined with AND.
type TicketFilter struct {
	Status   domain.TicketStatus
	Category domain.TicketCategory
	Email    string
	Priority domain.TicketPriority
}

// Matches reports whether the ticket passes every set filter.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Email != "" && t.Email != f.Email {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}

// MessageInput describes a message appended to a ticket thread. Empty author
// fields fall back to the ticket requester; an empty kind means customer.
type MessageInput struct {
	Body        string
	Author      string
	AuthorEmail string
	Kind        domain.MessageKind
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		validator:  newInputValidator(),
		logger:     logger,
		metrics:    deps.Metrics,
		now:        clock,
	}
}

// CreateTicket validates input, allocates the next id and persists the ticket
// with its opening message.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Category = domain.TicketCategory(strings.TrimSpace(string(input.Category)))
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	input.Priority = domain.TicketPriority(strings.TrimSpace(string(input.Priority)))

	if err := s.validator.check(input, "name, email, category, subject and description are required"); err != nil {
		return nil, err
	}

	priority := input.Priority
	if !priority.Valid() {
		priority = domain.TicketPriorityMedium
	}

	ticket, err := s.insert(ctx, func(id int64, now time.Time) domain.Ticket {
		return domain.Ticket{
			ID:          id,
			Number:      domain.TicketNumber(id),
			Name:        input.Name,
			Email:       input.Email,
			Phone:       optional(input.Phone),
			Category:    input.Category,
			Subject:     input.Subject,
			Description: input.Description,
			Priority:    priority,
			Status:      domain.TicketStatusOpen,
			Messages: []domain.TicketMessage{{
				ID:          1,
				Author:      input.Name,
				AuthorEmail: input.Email,
				Body:        input.Description,
				Kind:        domain.MessageKindCustomer,
				SentAt:      now,
			}},
			OpenedAt:  now,
			UpdatedAt: now,
		}
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLifecycle("tickets", "created")
	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.String("number", ticket.Number))

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		RecordID:  ticket.ID,
		Reference: ticket.Number,
		Actor:     &events.Actor{Name: ticket.Name, Email: ticket.Email},
		Payload: events.TicketCreatedPayload{
			Category: string(ticket.Category),
			Priority: string(ticket.Priority),
			Subject:  ticket.Subject,
		},
	})
	return ticket, nil
}

// ListTickets returns every ticket passing the filter. A store that cannot be
// read is logged and reported as empty.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	tickets := s.loadForRead(ctx)
	result := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if filter.Matches(&tickets[i]) {
			result = append(result, tickets[i])
		}
	}
	return result, nil
}

// GetTicket resolves a ticket by numeric id or display number.
func (s *TicketService) GetTicket(ctx context.Context, ref domain.TicketRef) (*domain.Ticket, error) {
	tickets := s.loadForRead(ctx)
	idx := indexTicket(tickets, ref)
	if idx < 0 {
		return nil, ticketNotFound(ref)
	}
	ticket := tickets[idx]
	return &ticket, nil
}

// UpdateStatus replaces the ticket status. Any member of the enumeration is
// accepted regardless of the current status.
func (s *TicketService) UpdateStatus(ctx context.Context, ref domain.TicketRef, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("status must be one of: %s", joinValues(domain.TicketStatuses)),
			map[string]any{"field": "status"},
		)
	}

	var oldStatus domain.TicketStatus
	ticket, err := s.mutate(ctx, ref, func(t *domain.Ticket) error {
		oldStatus = t.Status
		t.Status = status
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLifecycle("tickets", "status_changed")

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketStatusChanged,
		RecordID:  ticket.ID,
		Reference: ticket.Number,
		Payload: events.StatusChangedPayload{
			OldStatus: string(oldStatus),
			NewStatus: string(status),
		},
	})
	return ticket, nil
}

// AddMessage appends a message to the ticket thread.
func (s *TicketService) AddMessage(ctx context.Context, ref domain.TicketRef, input MessageInput) (*domain.TicketMessage, *domain.Ticket, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, nil, apperrors.NewValidationError("message body is required", map[string]any{"field": "mensagem"})
	}
	kind := domain.MessageKind(strings.TrimSpace(string(input.Kind)))
	if kind == "" {
		kind = domain.MessageKindCustomer
	}
	if !kind.Valid() {
		return nil, nil, apperrors.NewValidationError(
			fmt.Sprintf("message kind must be one of: %s", joinValues(domain.MessageKinds)),
			map[string]any{"field": "tipo"},
		)
	}

	var msg domain.TicketMessage
	ticket, err := s.mutate(ctx, ref, func(t *domain.Ticket) error {
		now := s.now()
		msg = domain.TicketMessage{
			ID:          len(t.Messages) + 1,
			Author:      firstNonEmpty(input.Author, t.Name),
			AuthorEmail: firstNonEmpty(input.AuthorEmail, t.Email),
			Body:        body,
			Kind:        kind,
			SentAt:      now,
		}
		t.Messages = append(t.Messages, msg)
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordLifecycle("tickets", "message_added")

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketMessageAdded,
		RecordID:  ticket.ID,
		Reference: ticket.Number,
		Actor:     &events.Actor{Name: msg.Author, Email: msg.AuthorEmail},
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			Kind:        string(msg.Kind),
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	return &msg, ticket, nil
}

// insert allocates max(id)+1 and appends the built ticket inside one locked
// read-modify-write cycle.
func (s *TicketService) insert(ctx context.Context, build func(id int64, now time.Time) domain.Ticket) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.tickets.LoadAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket := build(nextID(tickets, func(t *domain.Ticket) int64 { return t.ID }), s.now())
	if err := s.tickets.SaveAll(ctx, append(tickets, ticket)); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &ticket, nil
}

// mutate runs one locked read-modify-write cycle against the ticket set. The
// stored set is untouched when fn fails or the ticket does not exist.
func (s *TicketService) mutate(ctx context.Context, ref domain.TicketRef, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.tickets.LoadAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	idx := indexTicket(tickets, ref)
	if idx < 0 {
		return nil, ticketNotFound(ref)
	}

	updated := tickets[idx]
	updated.Messages = append([]domain.TicketMessage(nil), updated.Messages...)
	if err := fn(&updated); err != nil {
		return nil, err
	}
	tickets[idx] = updated

	if err := s.tickets.SaveAll(ctx, tickets); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &updated, nil
}

func (s *TicketService) loadForRead(ctx context.Context) []domain.Ticket {
	tickets, err := s.tickets.LoadAll(ctx)
	if err != nil {
		s.logger.Error("ticket store unreadable; serving empty set", zap.Error(err))
		return []domain.Ticket{}
	}
	return tickets
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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

func indexTicket(tickets []domain.Ticket, ref domain.TicketRef) int {
	for i := range tickets {
		if ref.Matches(&tickets[i]) {
			return i
		}
	}
	return -1
}

func ticketNotFound(ref domain.TicketRef) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": ref.String()})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
