package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen              TicketState = "OPEN"
	TicketStatePendingAssignment TicketState = "PENDING_ASSIGNMENT"
	TicketStatePending           TicketState = "PENDING"
	TicketStateInProgress        TicketState = "IN_PROGRESS"
	TicketStateResolved          TicketState = "RESOLVED"
)

// TicketPriority enumerates SLA urgency. Tickets never pick their own
// priority; it is derived from the category at creation or category change.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// HighPriorityMaxHours caps the estimated resolution window for
// high-priority tickets.
const HighPriorityMaxHours = 12

// Ticket is the aggregate for help-desk requests.
type Ticket struct {
	ID             int64
	Title          string
	Description    string
	State          TicketState
	Priority       TicketPriority
	CategoryID     *int64
	SubcategoryID  *int64
	RequesterID    int64
	AgentID        *int64
	EstimatedHours int
	Rating         *int
	ClosingComment string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

// Assigned reports whether an agent is attached.
func (t *Ticket) Assigned() bool {
	return t.AgentID != nil
}

// EditableAt reports whether the requester edit window is still open at the
// given instant. Agents and admins are not bound by this window.
func (t *Ticket) EditableAt(now time.Time, window time.Duration) bool {
	return t.State == TicketStateOpen && now.Before(t.CreatedAt.Add(window))
}

// Overdue reports whether the ticket has outlived its estimated resolution
// window without being resolved.
func (t *Ticket) Overdue(now time.Time) bool {
	if t.State == TicketStateResolved {
		return false
	}
	return now.After(t.CreatedAt.Add(time.Duration(t.EstimatedHours) * time.Hour))
}

var allowedTransitions = map[TicketState][]TicketState{
	TicketStateOpen:              {TicketStatePendingAssignment, TicketStatePending, TicketStateInProgress, TicketStateResolved},
	TicketStatePendingAssignment: {TicketStateOpen, TicketStatePending, TicketStateInProgress},
	TicketStatePending:           {TicketStateOpen, TicketStateInProgress},
	TicketStateInProgress:        {TicketStateResolved},
	TicketStateResolved:          {TicketStateOpen},
}

// CanTransition reports whether moving from current to next is permitted.
func CanTransition(current, next TicketState) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidTicketState reports whether the value is a known state.
func ValidTicketState(state TicketState) bool {
	switch state {
	case TicketStateOpen, TicketStatePendingAssignment, TicketStatePending, TicketStateInProgress, TicketStateResolved:
		return true
	}
	return false
}

// ValidRating reports whether a closure rating is in the 1-5 range.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
