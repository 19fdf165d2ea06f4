package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TicketState
		want     bool
	}{
		{TicketStateOpen, TicketStateInProgress, true},
		{TicketStateOpen, TicketStateResolved, true},
		{TicketStateOpen, TicketStatePendingAssignment, true},
		{TicketStatePendingAssignment, TicketStatePending, true},
		{TicketStatePendingAssignment, TicketStateResolved, false},
		{TicketStatePending, TicketStateOpen, true},
		{TicketStatePending, TicketStateResolved, false},
		{TicketStateInProgress, TicketStateResolved, true},
		{TicketStateInProgress, TicketStateOpen, false},
		{TicketStateResolved, TicketStateOpen, true},
		{TicketStateResolved, TicketStateInProgress, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEditableAt(t *testing.T) {
	created := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	window := 5 * time.Minute
	ticket := &Ticket{State: TicketStateOpen, CreatedAt: created}

	assert.True(t, ticket.EditableAt(created.Add(4*time.Minute), window))
	assert.False(t, ticket.EditableAt(created.Add(5*time.Minute), window))

	ticket.State = TicketStateInProgress
	assert.False(t, ticket.EditableAt(created.Add(time.Minute), window))
}

func TestOverdue(t *testing.T) {
	created := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	ticket := &Ticket{State: TicketStateOpen, CreatedAt: created, EstimatedHours: 12}

	assert.False(t, ticket.Overdue(created.Add(12*time.Hour)))
	assert.True(t, ticket.Overdue(created.Add(12*time.Hour+time.Second)))

	ticket.State = TicketStateResolved
	assert.False(t, ticket.Overdue(created.Add(48*time.Hour)))
}

func TestValidRating(t *testing.T) {
	assert.False(t, ValidRating(0))
	assert.True(t, ValidRating(1))
	assert.True(t, ValidRating(5))
	assert.False(t, ValidRating(6))
}

func TestAssignmentExpired(t *testing.T) {
	deadline := time.Date(2025, 3, 10, 10, 5, 0, 0, time.UTC)
	offer := &TicketAssignment{State: AssignmentStatePending, Deadline: deadline}

	assert.False(t, offer.Expired(deadline))
	assert.True(t, offer.Expired(deadline.Add(time.Second)))

	offer.State = AssignmentStateAccepted
	assert.False(t, offer.Expired(deadline.Add(time.Hour)))
}

func TestEffectiveResolutionHours(t *testing.T) {
	parent := &Category{ResolutionHours: 48}

	sub := &Subcategory{ResolutionHours: 24}
	assert.Equal(t, 24, sub.EffectiveResolutionHours(parent))

	inherits := &Subcategory{}
	assert.Equal(t, 48, inherits.EffectiveResolutionHours(parent))
}
