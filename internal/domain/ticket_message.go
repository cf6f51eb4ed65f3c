package domain

import "time"

// MessageKind indicates which side of the conversation wrote a message.
type MessageKind string

const (
	MessageKindCustomer MessageKind = "customer"
	MessageKindAgent    MessageKind = "agent"
)

// MessageKinds lists every accepted message kind.
var MessageKinds = []MessageKind{MessageKindCustomer, MessageKindAgent}

// Valid reports whether k belongs to the message kind enumeration.
func (k MessageKind) Valid() bool {
	return k == MessageKindCustomer || k == MessageKindAgent
}

// TicketMessage captures communications in a ticket thread. ID is the
// 1-based position of the message inside its ticket.
type TicketMessage struct {
	ID          int
	Author      string
	AuthorEmail string
	Body        string
	Kind        MessageKind
	SentAt      time.Time
}
