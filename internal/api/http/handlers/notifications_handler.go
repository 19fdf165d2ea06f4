package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hrdesk/helpdesk-service/internal/api/dto"
	"github.com/hrdesk/helpdesk-service/internal/auth"
	"github.com/hrdesk/helpdesk-service/internal/service"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// NotificationsHandler exposes the stored notification feed.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	unreadOnly := c.QueryBool("unread", false)
	limit := c.QueryInt("limit", 50)

	notifications, err := h.service.List(c.UserContext(), account.ID, unreadOnly, limit)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		items = append(items, dto.NotificationResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			Message:   n.Message,
			TicketID:  n.TicketID,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(c.UserContext(), id, account.ID); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}
