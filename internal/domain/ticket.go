package domain

import (
	"fmt"
	"time"
)

// TicketNumberPrefix prefixes every ticket display number.
const TicketNumberPrefix = "CHM-"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen             TicketStatus = "open"
	TicketStatusInProgress       TicketStatus = "in_progress"
	TicketStatusAwaitingCustomer TicketStatus = "awaiting_customer"
	TicketStatusResolved         TicketStatus = "resolved"
	TicketStatusClosed           TicketStatus = "closed"
)

// TicketStatuses lists every accepted ticket status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusAwaitingCustomer,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s belongs to the ticket status enumeration.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// TicketCategory classifies the subject area of a ticket.
type TicketCategory string

const (
	TicketCategoryTechnical  TicketCategory = "technical"
	TicketCategoryFinancial  TicketCategory = "financial"
	TicketCategoryCommercial TicketCategory = "commercial"
	TicketCategorySupport    TicketCategory = "support"
	TicketCategoryOther      TicketCategory = "other"
)

// TicketCategories lists every accepted category.
var TicketCategories = []TicketCategory{
	TicketCategoryTechnical,
	TicketCategoryFinancial,
	TicketCategoryCommercial,
	TicketCategorySupport,
	TicketCategoryOther,
}

// Valid reports whether c belongs to the category enumeration.
func (c TicketCategory) Valid() bool {
	for _, candidate := range TicketCategories {
		if c == candidate {
			return true
		}
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists every accepted priority.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether p belongs to the priority enumeration.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64
	Number      string
	Name        string
	Email       string
	Phone       *string
	Category    TicketCategory
	Subject     string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	Messages    []TicketMessage
	OpenedAt    time.Time
	UpdatedAt   time.Time
}

// TicketNumber derives the display number for a ticket id.
func TicketNumber(id int64) string {
	return fmt.Sprintf("%s%06d", TicketNumberPrefix, id)
}
