package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusOpen      ComplaintStatus = "open"
	ComplaintStatusInReview  ComplaintStatus = "in_review"
	ComplaintStatusResolved  ComplaintStatus = "resolved"
	ComplaintStatusCancelled ComplaintStatus = "cancelled"
)

// ComplaintStatuses lists every accepted complaint status.
var ComplaintStatuses = []ComplaintStatus{
	ComplaintStatusOpen,
	ComplaintStatusInReview,
	ComplaintStatusResolved,
	ComplaintStatusCancelled,
}

// Valid reports whether s belongs to the complaint status enumeration.
func (s ComplaintStatus) Valid() bool {
	for _, candidate := range ComplaintStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Complaint is a customer complaint without a message thread.
type Complaint struct {
	ID          int64
	Name        string
	Email       string
	Phone       *string
	PostalCode  *string
	Subject     string
	Description string
	Status      ComplaintStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
