package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	PostalCode  string `json:"postal_code"`
}

// ComplaintResponse is the full complaint record.
type ComplaintResponse struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Email       string                 `json:"email"`
	Phone       *string                `json:"phone"`
	Subject     string                 `json:"subject"`
	Description string                 `json:"description"`
	PostalCode  *string                `json:"postalCode"`
	Status      domain.ComplaintStatus `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// ComplaintListResponse wraps a filtered complaint list.
type ComplaintListResponse struct {
	Total   int                 `json:"total"`
	Records []ComplaintResponse `json:"records"`
}
