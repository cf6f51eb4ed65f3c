package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketMessageAdded     EventType = "ticket_message_added"
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
)

// Actor identifies who triggered an event, when known.
type Actor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RecordID  int64     `json:"record_id"`
	Reference string    `json:"reference"`
	Actor     *Actor    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
	Subject  string `json:"subject"`
}

// StatusChangedPayload is shared by ticket and complaint status events.
type StatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   int    `json:"message_id"`
	Kind        string `json:"kind"`
	BodyPreview string `json:"body_preview"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Subject    string  `json:"subject"`
	PostalCode *string `json:"postal_code,omitempty"`
}
