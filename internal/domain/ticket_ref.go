package domain

import (
	"strconv"
	"strings"
)

// TicketRef identifies a ticket either by numeric id or by display number.
// Exactly one of ID and Number is set.
type TicketRef struct {
	ID     int64
	Number string
}

// ParseTicketRef reads a path identifier: digits select the numeric id,
// anything else is treated as a display number.
func ParseTicketRef(raw string) TicketRef {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return TicketRef{ID: id}
	}
	return TicketRef{Number: raw}
}

// Matches reports whether the ticket is the one referenced.
func (r TicketRef) Matches(t *Ticket) bool {
	if t == nil {
		return false
	}
	if r.Number != "" {
		return t.Number == r.Number
	}
	return r.ID != 0 && t.ID == r.ID
}

func (r TicketRef) String() string {
	if r.Number != "" {
		return r.Number
	}
	return strconv.FormatInt(r.ID, 10)
}
