package dto

import (
	"time"

	"github.com/hrdesk/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	CategoryID    *int64 `json:"category_id"`
	SubcategoryID *int64 `json:"subcategory_id"`
}

// CreateTicketForRequest payload for agents filing on behalf of someone.
type CreateTicketForRequest struct {
	RequesterID   int64  `json:"requester_id"`
	AgentID       int64  `json:"agent_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CategoryID    *int64 `json:"category_id"`
	SubcategoryID *int64 `json:"subcategory_id"`
}

// EditTicketRequest payload; absent fields are left untouched.
type EditTicketRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	CategoryID    *int64  `json:"category_id"`
	SubcategoryID *int64  `json:"subcategory_id"`
}

// ChangeStateRequest payload.
type ChangeStateRequest struct {
	State domain.TicketState `json:"state"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Comment string `json:"comment"`
	Rating  *int   `json:"rating"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             int64                 `json:"id"`
	Title          string                `json:"title"`
	State          domain.TicketState    `json:"state"`
	Priority       domain.TicketPriority `json:"priority"`
	CategoryID     *int64                `json:"category_id"`
	SubcategoryID  *int64                `json:"subcategory_id"`
	RequesterID    int64                 `json:"requester_id"`
	AgentID        *int64                `json:"agent_id"`
	EstimatedHours int                   `json:"estimated_hours"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description    string          `json:"description"`
	Rating         *int            `json:"rating"`
	ClosingComment string          `json:"closing_comment,omitempty"`
	ClosedAt       *time.Time      `json:"closed_at"`
	History        []HistoryEntry  `json:"history,omitempty"`
	Assignment     *AssignmentInfo `json:"assignment,omitempty"`
}

// AssignmentInfo reports how the assignment attempt went for a new ticket.
type AssignmentInfo struct {
	Assigned bool   `json:"assigned"`
	AgentID  *int64 `json:"agent_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// HistoryEntry is one audit row.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	ActorID   *int64    `json:"actor_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// OfferResponse is one reassignment offer.
type OfferResponse struct {
	ID                 int64                  `json:"id"`
	TicketID           int64                  `json:"ticket_id"`
	OriginAgentID      int64                  `json:"origin_agent_id"`
	DestinationAgentID int64                  `json:"destination_agent_id"`
	State              domain.AssignmentState `json:"state"`
	SentAt             time.Time              `json:"sent_at"`
	Deadline           time.Time              `json:"deadline"`
}

// ProposeReassignmentRequest payload.
type ProposeReassignmentRequest struct {
	DestinationAgentID int64 `json:"destination_agent_id"`
}

// NotificationResponse is one stored notification.
type NotificationResponse struct {
	ID        int64                   `json:"id"`
	Kind      domain.NotificationKind `json:"kind"`
	Message   string                  `json:"message"`
	TicketID  *int64                  `json:"ticket_id"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}
