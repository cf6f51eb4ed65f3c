package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Name        string                `json:"name"`
	Email       string                `json:"email"`
	Phone       string                `json:"phone"`
	Category    domain.TicketCategory `json:"category"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateStatusRequest is shared by the ticket and complaint status endpoints.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AddMessageRequest payload. Keys follow the public form field names.
type AddMessageRequest struct {
	Body        string `json:"mensagem"`
	Author      string `json:"nome"`
	AuthorEmail string `json:"email"`
	Kind        string `json:"tipo"`
}

// TicketResponse is the full ticket record.
type TicketResponse struct {
	ID          int64                   `json:"id"`
	Number      string                  `json:"number"`
	Name        string                  `json:"name"`
	Email       string                  `json:"email"`
	Phone       *string                 `json:"phone"`
	Category    domain.TicketCategory   `json:"category"`
	Subject     string                  `json:"subject"`
	Description string                  `json:"description"`
	Priority    domain.TicketPriority   `json:"priority"`
	Status      domain.TicketStatus     `json:"status"`
	Messages    []TicketMessageResponse `json:"messages"`
	OpenedAt    time.Time               `json:"openedAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID          int                `json:"id"`
	Author      string             `json:"author"`
	AuthorEmail string             `json:"authorEmail"`
	Body        string             `json:"body"`
	Kind        domain.MessageKind `json:"kind"`
	SentAt      time.Time          `json:"sentAt"`
}

// TicketListResponse wraps a filtered ticket list.
type TicketListResponse struct {
	Total   int              `json:"total"`
	Records []TicketResponse `json:"records"`
}

// AddMessageResponse returns the appended message with its updated ticket.
type AddMessageResponse struct {
	Message TicketMessageResponse `json:"mensagem"`
	Ticket  TicketResponse        `json:"chamado"`
}
