package domain

import "time"

// NotificationKind labels what a notification is about.
type NotificationKind string

const (
	NotificationGeneral             NotificationKind = "general"
	NotificationTicketCreated       NotificationKind = "ticket_created"
	NotificationTicketAssigned      NotificationKind = "ticket_assigned"
	NotificationTicketStateChanged  NotificationKind = "ticket_state_changed"
	NotificationTicketClosed        NotificationKind = "ticket_closed"
	NotificationTicketReopened      NotificationKind = "ticket_reopened"
	NotificationReassignmentOffer   NotificationKind = "reassignment_offer"
	NotificationReassignmentExpired NotificationKind = "reassignment_expired"
)

// Notification is the persisted leg of the fan-out; the push leg is
// best-effort and never stored.
type Notification struct {
	ID        int64
	AccountID int64
	Kind      NotificationKind
	Message   string
	TicketID  *int64
	Read      bool
	CreatedAt time.Time
}
