package domain

import "time"

// AssignmentState enumerates the lifecycle of a reassignment offer.
type AssignmentState string

const (
	AssignmentStatePending  AssignmentState = "PENDING"
	AssignmentStateAccepted AssignmentState = "ACCEPTED"
	AssignmentStateRejected AssignmentState = "REJECTED"
	AssignmentStateExpired  AssignmentState = "EXPIRED"
)

// TicketAssignment is a time-boxed offer to move a ticket between agents.
// The ticket's agent only changes when the destination accepts; a rejected
// or expired offer leaves the ticket with the origin agent.
type TicketAssignment struct {
	ID                 int64
	TicketID           int64
	OriginAgentID      int64
	DestinationAgentID int64
	State              AssignmentState
	SentAt             time.Time
	Deadline           time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Expired reports whether a still-pending offer has outlived its deadline.
func (a *TicketAssignment) Expired(now time.Time) bool {
	return a.State == AssignmentStatePending && now.After(a.Deadline)
}
