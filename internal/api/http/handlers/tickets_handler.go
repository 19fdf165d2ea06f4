package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hrdesk/helpdesk-service/internal/api/dto"
	"github.com/hrdesk/helpdesk-service/internal/auth"
	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/repository"
	"github.com/hrdesk/helpdesk-service/internal/service"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// TicketsHandler manages the ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, outcome, err := h.service.CreateTicket(c.UserContext(), account, service.TicketCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, nil, outcome)})
}

// CreateTicketFor POST /tickets/on-behalf.
func (h *TicketsHandler) CreateTicketFor(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketForRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, outcome, err := h.service.CreateTicketForAgent(c.UserContext(), account, req.RequesterID, req.AgentID, service.TicketCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, nil, outcome)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	tickets, err := h.service.ListTickets(c.UserContext(), account, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	ticket, err := h.service.GetTicket(c.UserContext(), account, id)
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), account, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history, nil)})
}

// EditTicket PATCH /tickets/:id.
func (h *TicketsHandler) EditTicket(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.EditTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.EditTicket(c.UserContext(), account, id, service.TicketEditInput{
		Title:         req.Title,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), account, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeState POST /tickets/:id/state.
func (h *TicketsHandler) ChangeState(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.ChangeState(c.UserContext(), account, id, req.State)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CloseTicket(c.UserContext(), account, id, req.Comment, req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	ticket, err := h.service.ReopenTicket(c.UserContext(), account, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if stateStr := c.Query("state"); stateStr != "" {
		for _, part := range strings.Split(stateStr, ",") {
			filter.States = append(filter.States, domain.TicketState(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if agentStr := c.Query("agent_id"); agentStr != "" {
		if agentID, err := strconv.ParseInt(agentStr, 10, 64); err == nil {
			filter.AgentID = &agentID
		}
	}
	if categoryStr := c.Query("category_id"); categoryStr != "" {
		if categoryID, err := strconv.ParseInt(categoryStr, 10, 64); err == nil {
			filter.CategoryID = &categoryID
		}
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		filter.SearchTerm = &search
	}
	return filter
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:             ticket.ID,
		Title:          ticket.Title,
		State:          ticket.State,
		Priority:       ticket.Priority,
		CategoryID:     ticket.CategoryID,
		SubcategoryID:  ticket.SubcategoryID,
		RequesterID:    ticket.RequesterID,
		AgentID:        ticket.AgentID,
		EstimatedHours: ticket.EstimatedHours,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.TicketHistory, outcome *service.AssignmentOutcome) dto.TicketDetailResponse {
	detail := dto.TicketDetailResponse{
		TicketSummary:  ticketSummary(ticket),
		Description:    ticket.Description,
		Rating:         ticket.Rating,
		ClosingComment: ticket.ClosingComment,
		ClosedAt:       ticket.ClosedAt,
	}
	for i := range history {
		detail.History = append(detail.History, dto.HistoryEntry{
			ID:        history[i].ID,
			ActorID:   history[i].ActorID,
			Action:    history[i].Action,
			Detail:    history[i].Detail,
			CreatedAt: history[i].CreatedAt,
		})
	}
	if outcome != nil {
		info := &dto.AssignmentInfo{Assigned: outcome.Assigned, Reason: string(outcome.Reason)}
		if outcome.Agent != nil {
			id := outcome.Agent.ID
			info.AgentID = &id
		}
		detail.Assignment = info
	}
	return detail
}
