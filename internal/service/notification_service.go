package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/events"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
	"github.com/hrdesk/helpdesk-service/internal/repository"
)

// NotificationService fans domain events out to per-account notifications.
// Each notification has two legs: a persisted row, written synchronously so
// it shares the audit trail's durability, and a best-effort Redis publish
// for connected clients.
type NotificationService struct {
	notifications repository.NotificationRepository
	accounts      repository.AccountRepository
	tickets       repository.TicketRepository
	redis         *persistence.Redis
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	accounts repository.AccountRepository,
	tickets repository.TicketRepository,
	redis *persistence.Redis,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		accounts:      accounts,
		tickets:       tickets,
		redis:         redis,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to the events the fan-out cares about.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStateChanged, n.handleTicketStateChanged)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleTicketReopened)
	n.dispatcher.Subscribe(events.EventReassignmentOffered, n.handleReassignmentOffered)
	n.dispatcher.Subscribe(events.EventReassignmentResolved, n.handleReassignmentResolved)
	n.dispatcher.Subscribe(events.EventReassignmentExpired, n.handleReassignmentExpired)
	n.dispatcher.Subscribe(events.EventTicketPendingPromoted, n.handlePendingPromoted)
}

// List returns notifications for the account, newest first.
func (n *NotificationService) List(ctx context.Context, accountID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	return n.notifications.ListByAccount(ctx, accountID, unreadOnly, limit)
}

// MarkRead flags one notification as read for its owner.
func (n *NotificationService) MarkRead(ctx context.Context, id, accountID int64) error {
	return n.notifications.MarkRead(ctx, id, accountID)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	message := fmt.Sprintf("Ticket #%d created: %s", event.TicketID, payload.Title)
	if payload.Pending {
		message = fmt.Sprintf("Ticket #%d is waiting for assignment (%s)", event.TicketID, payload.Reason)
	}
	n.notify(ctx, payload.RequesterID, domain.NotificationTicketCreated, event.TicketID, message)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	n.notify(ctx, payload.AgentID, domain.NotificationTicketAssigned, event.TicketID,
		fmt.Sprintf("Ticket #%d was assigned to you", event.TicketID))
	if requesterID, ok := n.requesterOf(ctx, event.TicketID); ok && requesterID != payload.AgentID {
		n.notify(ctx, requesterID, domain.NotificationTicketAssigned, event.TicketID,
			fmt.Sprintf("Ticket #%d now has an agent", event.TicketID))
	}
	return nil
}

func (n *NotificationService) handleTicketStateChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStateChangedPayload)
	if !ok {
		return nil
	}
	if requesterID, ok := n.requesterOf(ctx, event.TicketID); ok {
		n.notify(ctx, requesterID, domain.NotificationTicketStateChanged, event.TicketID,
			fmt.Sprintf("Ticket #%d moved from %s to %s", event.TicketID, payload.OldState, payload.NewState))
	}
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	if requesterID, ok := n.requesterOf(ctx, event.TicketID); ok {
		n.notify(ctx, requesterID, domain.NotificationTicketClosed, event.TicketID,
			fmt.Sprintf("Ticket #%d was resolved", event.TicketID))
	}
	return nil
}

func (n *NotificationService) handleTicketReopened(ctx context.Context, event events.Event) error {
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return nil
	}
	if ticket.AgentID != nil {
		n.notify(ctx, *ticket.AgentID, domain.NotificationTicketReopened, event.TicketID,
			fmt.Sprintf("Ticket #%d was reopened", event.TicketID))
	}
	return nil
}

func (n *NotificationService) handleReassignmentOffered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReassignmentOfferedPayload)
	if !ok {
		return nil
	}
	n.notify(ctx, payload.DestinationAgentID, domain.NotificationReassignmentOffer, event.TicketID,
		fmt.Sprintf("Ticket #%d was offered to you, respond before %s",
			event.TicketID, payload.Deadline.Format("15:04 MST")))
	return nil
}

func (n *NotificationService) handleReassignmentResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReassignmentResolvedPayload)
	if !ok {
		return nil
	}
	verb := "accepted"
	if payload.Outcome == domain.AssignmentStateRejected {
		verb = "declined"
	}
	n.notify(ctx, payload.OriginAgentID, domain.NotificationReassignmentOffer, event.TicketID,
		fmt.Sprintf("Your reassignment offer for ticket #%d was %s", event.TicketID, verb))
	return nil
}

func (n *NotificationService) handleReassignmentExpired(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReassignmentResolvedPayload)
	if !ok {
		return nil
	}
	n.notify(ctx, payload.OriginAgentID, domain.NotificationReassignmentExpired, event.TicketID,
		fmt.Sprintf("Your reassignment offer for ticket #%d expired, the ticket stays with you", event.TicketID))
	return nil
}

func (n *NotificationService) handlePendingPromoted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	n.notify(ctx, payload.AgentID, domain.NotificationTicketAssigned, event.TicketID,
		fmt.Sprintf("Queued ticket #%d was assigned to you", event.TicketID))
	return nil
}

// notify persists the row and pushes it. A failed insert is logged, not
// returned; notifications never block the transition that caused them.
func (n *NotificationService) notify(ctx context.Context, accountID int64, kind domain.NotificationKind, ticketID int64, message string) {
	notification := &domain.Notification{
		AccountID: accountID,
		Kind:      kind,
		Message:   message,
		TicketID:  &ticketID,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error("failed to persist notification",
			zap.Int64("account_id", accountID), zap.Int64("ticket_id", ticketID), zap.Error(err))
		return
	}
	n.push(ctx, notification)
}

func (n *NotificationService) push(ctx context.Context, notification *domain.Notification) {
	if n.redis == nil || n.redis.Client == nil {
		return
	}
	body, err := json.Marshal(notification)
	if err != nil {
		return
	}
	channel := fmt.Sprintf("user:%d:notifications", notification.AccountID)
	if err := n.redis.Client.Publish(ctx, channel, body).Err(); err != nil {
		n.logger.Debug("notification push skipped", zap.String("channel", channel), zap.Error(err))
	}
}

func (n *NotificationService) requesterOf(ctx context.Context, ticketID int64) (int64, bool) {
	ticket, err := n.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return 0, false
	}
	return ticket.RequesterID, true
}
