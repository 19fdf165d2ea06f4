package domain

import "time"

// Well-known history actions written by the assignment engine and the
// ticket state machine.
const (
	HistoryAutomaticAssignment  = "Automatic Assignment"
	HistoryPendingAssignment    = "Pending Assignment"
	HistoryPendingReassignment  = "Pending Reassignment"
	HistoryReassignmentAccepted = "Reassignment Accepted"
	HistoryReassignmentRejected = "Reassignment Rejected"
	HistoryAssignmentExpired    = "Assignment Expired"
	HistoryDeferredAssignment   = "Deferred Assignment"
	HistoryStateChange          = "State Change"
	HistoryTicketClosed         = "Ticket Closed"
	HistoryTicketReopened       = "Ticket Reopened"
	HistoryTicketEdited         = "Ticket Edited"
)

// TicketHistory is an append-only audit entry. A nil ActorID marks the
// system (sweeps, automatic assignment) as the acting party.
type TicketHistory struct {
	ID        int64
	TicketID  int64
	ActorID   *int64
	Action    string
	Detail    string
	CreatedAt time.Time
}
