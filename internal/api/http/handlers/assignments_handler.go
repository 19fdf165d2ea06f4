package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hrdesk/helpdesk-service/internal/api/dto"
	"github.com/hrdesk/helpdesk-service/internal/auth"
	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/service"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// AssignmentsHandler manages reassignment offers between agents.
type AssignmentsHandler struct {
	service *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignmentService *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{service: assignmentService}
}

// Propose POST /tickets/:id/reassign.
func (h *AssignmentsHandler) Propose(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.ProposeReassignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DestinationAgentID <= 0 {
		return apperrors.NewValidationError("destination_agent_id required", nil)
	}

	offer, err := h.service.ProposeReassignment(c.UserContext(), id, account, req.DestinationAgentID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": offerResponse(offer)})
}

// Accept POST /tickets/:id/reassign/accept.
func (h *AssignmentsHandler) Accept(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	ticket, err := h.service.AcceptReassignment(c.UserContext(), id, account)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Reject POST /tickets/:id/reassign/reject.
func (h *AssignmentsHandler) Reject(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	if err := h.service.RejectReassignment(c.UserContext(), id, account); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Inbox GET /assignments/inbox.
func (h *AssignmentsHandler) Inbox(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	offers, err := h.service.PendingOffersFor(c.UserContext(), account.ID)
	if err != nil {
		return err
	}
	items := make([]dto.OfferResponse, 0, len(offers))
	for i := range offers {
		items = append(items, offerResponse(&offers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func offerResponse(offer *domain.TicketAssignment) dto.OfferResponse {
	return dto.OfferResponse{
		ID:                 offer.ID,
		TicketID:           offer.TicketID,
		OriginAgentID:      offer.OriginAgentID,
		DestinationAgentID: offer.DestinationAgentID,
		State:              offer.State,
		SentAt:             offer.SentAt,
		Deadline:           offer.Deadline,
	}
}
