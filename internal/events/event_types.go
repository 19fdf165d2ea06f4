package events

import (
	"time"

	"github.com/hrdesk/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStateChanged    EventType = "ticket_state_changed"
	EventTicketClosed          EventType = "ticket_closed"
	EventTicketReopened        EventType = "ticket_reopened"
	EventReassignmentOffered   EventType = "reassignment_offered"
	EventReassignmentResolved  EventType = "reassignment_resolved"
	EventReassignmentExpired   EventType = "reassignment_expired"
	EventTicketPendingPromoted EventType = "ticket_pending_promoted"
)

// Actor encapsulates actor metadata for an event. A nil AccountID marks the
// system (sweeps, automatic assignment).
type Actor struct {
	AccountID *int64          `json:"account_id,omitempty"`
	Kind      domain.RoleKind `json:"kind,omitempty"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	RequesterID int64                 `json:"requester_id"`
	CategoryID  *int64                `json:"category_id,omitempty"`
	Priority    domain.TicketPriority `json:"priority"`
	Title       string                `json:"title"`
	Pending     bool                  `json:"pending"`
	Reason      string                `json:"reason,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID     int64  `json:"agent_id"`
	PrevAgentID *int64 `json:"prev_agent_id,omitempty"`
}

// TicketStateChangedPayload payload.
type TicketStateChangedPayload struct {
	OldState domain.TicketState `json:"old_state"`
	NewState domain.TicketState `json:"new_state"`
	Comment  string             `json:"comment,omitempty"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Rating  *int   `json:"rating,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// ReassignmentOfferedPayload payload.
type ReassignmentOfferedPayload struct {
	AssignmentID       int64     `json:"assignment_id"`
	OriginAgentID      int64     `json:"origin_agent_id"`
	DestinationAgentID int64     `json:"destination_agent_id"`
	Deadline           time.Time `json:"deadline"`
}

// ReassignmentResolvedPayload payload.
type ReassignmentResolvedPayload struct {
	AssignmentID       int64                  `json:"assignment_id"`
	OriginAgentID      int64                  `json:"origin_agent_id"`
	DestinationAgentID int64                  `json:"destination_agent_id"`
	Outcome            domain.AssignmentState `json:"outcome"`
}
