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

// TicketsHandler manages ticket (chamado) endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/chamados.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Category:    req.Category,
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ticketResponse(ticket))
}

// ListTickets GET /api/chamados.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketFilter{
		Status:   domain.TicketStatus(strings.TrimSpace(c.Query("status"))),
		Category: domain.TicketCategory(strings.TrimSpace(c.Query("category"))),
		Email:    strings.TrimSpace(c.Query("email")),
		Priority: domain.TicketPriority(strings.TrimSpace(c.Query("priority"))),
	}
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	records := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		records = append(records, ticketResponse(&tickets[i]))
	}
	return c.JSON(dto.TicketListResponse{Total: len(records), Records: records})
}

// ListCategories GET /api/chamados/categorias.
func (h *TicketsHandler) ListCategories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categories": domain.TicketCategories})
}

// ListStatuses GET /api/chamados/status.
func (h *TicketsHandler) ListStatuses(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"statuses": domain.TicketStatuses})
}

// GetTicket GET /api/chamados/:id, where id is the numeric id or the ticket number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), domain.ParseTicketRef(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

// UpdateStatus PUT /api/chamados/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.TicketStatus(strings.TrimSpace(req.Status))
	ticket, err := h.service.UpdateStatus(c.UserContext(), domain.ParseTicketRef(c.Params("id")), status)
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

// AddMessage POST /api/chamados/:id/mensagens.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	var req dto.AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, ticket, err := h.service.AddMessage(c.UserContext(), domain.ParseTicketRef(c.Params("id")), service.MessageInput{
		Body:        req.Body,
		Author:      req.Author,
		AuthorEmail: req.AuthorEmail,
		Kind:        domain.MessageKind(req.Kind),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.AddMessageResponse{
		Message: ticketMessageResponse(msg),
		Ticket:  ticketResponse(ticket),
	})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	messages := make([]dto.TicketMessageResponse, 0, len(ticket.Messages))
	for i := range ticket.Messages {
		messages = append(messages, ticketMessageResponse(&ticket.Messages[i]))
	}
	return dto.TicketResponse{
		ID:          ticket.ID,
		Number:      ticket.Number,
		Name:        ticket.Name,
		Email:       ticket.Email,
		Phone:       ticket.Phone,
		Category:    ticket.Category,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		Messages:    messages,
		OpenedAt:    ticket.OpenedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:          msg.ID,
		Author:      msg.Author,
		AuthorEmail: msg.AuthorEmail,
		Body:        msg.Body,
		Kind:        msg.Kind,
		SentAt:      msg.SentAt,
	}
}
