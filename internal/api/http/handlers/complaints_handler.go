package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// ComplaintsHandler manages complaint (reclamação) endpoints.
type ComplaintsHandler struct {
	service *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService}
}

// CreateComplaint POST /api/reclamacoes.
func (h *ComplaintsHandler) CreateComplaint(c *fiber.Ctx) error {
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.service.CreateComplaint(c.UserContext(), service.ComplaintCreateInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		PostalCode:  req.PostalCode,
		Subject:     req.Subject,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(complaintResponse(complaint))
}

// ListComplaints GET /api/reclamacoes.
func (h *ComplaintsHandler) ListComplaints(c *fiber.Ctx) error {
	complaints, err := h.service.ListComplaints(c.UserContext(), service.ComplaintFilter{
		Status: domain.ComplaintStatus(strings.TrimSpace(c.Query("status"))),
		Email:  strings.TrimSpace(c.Query("email")),
	})
	if err != nil {
		return err
	}
	records := make([]dto.ComplaintResponse, 0, len(complaints))
	for i := range complaints {
		records = append(records, complaintResponse(&complaints[i]))
	}
	return c.JSON(dto.ComplaintListResponse{Total: len(records), Records: records})
}

// ListStatuses GET /api/reclamacoes/status.
func (h *ComplaintsHandler) ListStatuses(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"statuses": domain.ComplaintStatuses})
}

// GetComplaint GET /api/reclamacoes/:id.
func (h *ComplaintsHandler) GetComplaint(c *fiber.Ctx) error {
	// non-numeric ids parse to 0, which never matches a stored complaint
	id, _ := service.ParseComplaintID(c.Params("id"))
	complaint, err := h.service.GetComplaint(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(complaintResponse(complaint))
}

// UpdateStatus PUT /api/reclamacoes/:id/status.
func (h *ComplaintsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	id, _ := service.ParseComplaintID(c.Params("id"))
	status := domain.ComplaintStatus(strings.TrimSpace(req.Status))
	complaint, err := h.service.UpdateStatus(c.UserContext(), id, status)
	if err != nil {
		return err
	}
	return c.JSON(complaintResponse(complaint))
}

func complaintResponse(complaint *domain.Complaint) dto.ComplaintResponse {
	return dto.ComplaintResponse{
		ID:          complaint.ID,
		Name:        complaint.Name,
		Email:       complaint.Email,
		Phone:       complaint.Phone,
		Subject:     complaint.Subject,
		Description: complaint.Description,
		PostalCode:  complaint.PostalCode,
		Status:      complaint.Status,
		CreatedAt:   complaint.CreatedAt,
		UpdatedAt:   complaint.UpdatedAt,
	}
}
