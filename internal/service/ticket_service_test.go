package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/events"
	"github.com/hrdesk/helpdesk-service/internal/repository"
)

func intPtr(v int) *int { return &v }

func TestCreateTicketDerivesPriorityAndHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	category := f.addCategory(t, "hardware", domain.TicketPriorityLow, 48, &roleID)

	ticket, outcome, err := f.ticketSvc.CreateTicket(ctx, requester, TicketCreateInput{
		Title:       "monitor flickers",
		Description: "screen blinks every few seconds",
		CategoryID:  &category.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.Equal(t, 48, ticket.EstimatedHours)
	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.True(t, outcome.Assigned)
	assert.Len(t, f.dispatcher.byType(events.EventTicketCreated), 1)
}

func TestCreateTicketHighPriorityCapsHours(t *testing.T) {
	f := newFixture(t)
	roleID := int64(7)
	f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	category := f.addCategory(t, "payroll outage", domain.TicketPriorityHigh, 48, &roleID)

	ticket, _, err := f.ticketSvc.CreateTicket(context.Background(), requester, TicketCreateInput{
		Title:       "no payslips",
		Description: "entire department",
		CategoryID:  &category.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, domain.HighPriorityMaxHours, ticket.EstimatedHours)
}

func TestCreateTicketSubcategoryOverridesHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	category := f.addCategory(t, "benefits", domain.TicketPriorityMedium, 72, &roleID)

	withHours := &domain.Subcategory{CategoryID: category.ID, Name: "dental", ResolutionHours: 24}
	require.NoError(t, f.categories.CreateSubcategory(ctx, withHours))
	inherits := &domain.Subcategory{CategoryID: category.ID, Name: "vision"}
	require.NoError(t, f.categories.CreateSubcategory(ctx, inherits))

	ticket, _, err := f.ticketSvc.CreateTicket(ctx, requester, TicketCreateInput{
		Title:       "dental claim stuck",
		Description: "submitted two weeks ago",
		CategoryID:  &category.ID, SubcategoryID: &withHours.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 24, ticket.EstimatedHours)

	ticket, _, err = f.ticketSvc.CreateTicket(ctx, requester, TicketCreateInput{
		Title:       "vision claim stuck",
		Description: "same story",
		CategoryID:  &category.ID, SubcategoryID: &inherits.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 72, ticket.EstimatedHours)
}

func TestCreateTicketRejectsForeignSubcategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester := f.addRequester(t, "alice")
	catA := f.addCategory(t, "a", domain.TicketPriorityMedium, 24, nil)
	catB := f.addCategory(t, "b", domain.TicketPriorityMedium, 24, nil)
	sub := &domain.Subcategory{CategoryID: catB.ID, Name: "misfiled"}
	require.NoError(t, f.categories.CreateSubcategory(ctx, sub))

	_, _, err := f.ticketSvc.CreateTicket(ctx, requester, TicketCreateInput{
		Title:       "x",
		Description: "y",
		CategoryID:  &catA.ID, SubcategoryID: &sub.ID,
	})
	require.Error(t, err)
}

func TestEditTicketInsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, nil)

	f.clk.Advance(3 * time.Minute)
	title := "updated title"
	updated, err := f.ticketSvc.EditTicket(ctx, requester, ticket.ID, TicketEditInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "updated title", updated.Title)
	assert.Len(t, f.history.byAction(ticket.ID, domain.HistoryTicketEdited), 1)
}

func TestEditTicketWindowExpiredForRequester(t *testing.T) {
	f := newFixture(t)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, nil)

	f.clk.Advance(6 * time.Minute)
	title := "too late"
	_, err := f.ticketSvc.EditTicket(context.Background(), requester, ticket.ID, TicketEditInput{Title: &title})
	require.Error(t, err)
}

func TestEditTicketAgentNotBoundByWindow(t *testing.T) {
	f := newFixture(t)
	roleID := int64(7)
	agent := f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, &agent.ID)

	f.clk.Advance(2 * time.Hour)
	title := "agent cleanup"
	updated, err := f.ticketSvc.EditTicket(context.Background(), agent, ticket.ID, TicketEditInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "agent cleanup", updated.Title)
}

func TestEditTicketCategoryChangeRederivesSLA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester := f.addRequester(t, "alice")
	low := f.addCategory(t, "low", domain.TicketPriorityLow, 72, nil)
	high := f.addCategory(t, "high", domain.TicketPriorityHigh, 48, nil)
	ticket := f.addTicket(t, requester.ID, &low.ID, domain.TicketStateOpen, nil)

	updated, err := f.ticketSvc.EditTicket(ctx, requester, ticket.ID, TicketEditInput{CategoryID: &high.ID})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	assert.Equal(t, domain.HighPriorityMaxHours, updated.EstimatedHours)
}

func TestDeleteTicketBlockedWhileInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	agent := f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateInProgress, &agent.ID)

	err := f.ticketSvc.DeleteTicket(ctx, requester, ticket.ID)
	require.Error(t, err)

	admin := f.addRequester(t, "root")
	admin.RoleKind = domain.RoleKindAdmin
	require.NoError(t, f.accounts.Update(ctx, admin))

	require.NoError(t, f.ticketSvc.DeleteTicket(ctx, admin, ticket.ID))
	_, err = f.tickets.GetByID(ctx, ticket.ID)
	require.Error(t, err)
}

func TestChangeStateRejectsIllegalTransition(t *testing.T) {
	f := newFixture(t)
	roleID := int64(7)
	agent := f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateResolved, &agent.ID)

	_, err := f.ticketSvc.ChangeState(context.Background(), agent, ticket.ID, domain.TicketStateInProgress)
	require.Error(t, err)
}

func TestChangeStateBlocksInProgressWithoutAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester := f.addRequester(t, "alice")
	admin := f.addRequester(t, "root")
	admin.RoleKind = domain.RoleKindAdmin
	require.NoError(t, f.accounts.Update(ctx, admin))

	unassigned := f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, nil)

	_, err := f.ticketSvc.ChangeState(ctx, admin, unassigned.ID, domain.TicketStateInProgress)
	require.Error(t, err)

	stored, err := f.tickets.GetByID(ctx, unassigned.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, stored.State)
	assert.Nil(t, stored.AgentID)
	assert.Empty(t, f.history.byAction(unassigned.ID, domain.HistoryStateChange))

	parked := f.addTicket(t, requester.ID, nil, domain.TicketStatePendingAssignment, nil)
	_, err = f.ticketSvc.ChangeState(ctx, admin, parked.ID, domain.TicketStateInProgress)
	require.Error(t, err)
}

func TestChangeStateToInProgressSyncsChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	agent := f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, &agent.ID)

	updated, err := f.ticketSvc.ChangeState(ctx, agent, ticket.ID, domain.TicketStateInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateInProgress, updated.State)

	room, err := f.chatRooms.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{requester.ID, agent.ID}, room.Participants)
	assert.Len(t, f.history.byAction(ticket.ID, domain.HistoryStateChange), 1)
}

func TestCloseTicketPersistsRatingAndComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	agent := f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateInProgress, &agent.ID)

	closed, err := f.ticketSvc.CloseTicket(ctx, agent, ticket.ID, "replaced the cable", intPtr(5))
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStateResolved, closed.State)
	require.NotNil(t, closed.Rating)
	assert.Equal(t, 5, *closed.Rating)
	assert.Equal(t, "replaced the cable", closed.ClosingComment)
	require.NotNil(t, closed.ClosedAt)
	assert.Len(t, f.history.byAction(ticket.ID, domain.HistoryTicketClosed), 1)

	room, err := f.chatRooms.GetByTicket(ctx, ticket.ID)
	if err == nil {
		assert.False(t, room.Active)
	}
}

func TestCloseTicketRejectsOutOfRangeRating(t *testing.T) {
	f := newFixture(t)
	roleID := int64(7)
	agent := f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateInProgress, &agent.ID)

	_, err := f.ticketSvc.CloseTicket(context.Background(), agent, ticket.ID, "done", intPtr(6))
	require.Error(t, err)
	_, err = f.ticketSvc.CloseTicket(context.Background(), agent, ticket.ID, "done", intPtr(0))
	require.Error(t, err)
}

func TestCloseTicketPullsForwardOldestPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	agent := f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	category := f.addCategory(t, "payroll", domain.TicketPriorityMedium, 24, &roleID)

	active := f.addTicket(t, requester.ID, &category.ID, domain.TicketStateInProgress, &agent.ID)
	for i := 0; i < f.cfg.AgentCapacity-1; i++ {
		f.addTicket(t, requester.ID, &category.ID, domain.TicketStateInProgress, &agent.ID)
	}

	f.clk.Advance(time.Minute)
	waiting := f.addTicket(t, requester.ID, &category.ID, domain.TicketStatePending, nil)
	f.clk.Advance(time.Minute)
	younger := f.addTicket(t, requester.ID, &category.ID, domain.TicketStatePending, nil)

	_, err := f.ticketSvc.CloseTicket(ctx, agent, active.ID, "fixed", intPtr(4))
	require.NoError(t, err)

	promoted, _ := f.tickets.GetByID(ctx, waiting.ID)
	assert.Equal(t, domain.TicketStateOpen, promoted.State)
	require.NotNil(t, promoted.AgentID)
	assert.Equal(t, agent.ID, *promoted.AgentID)
	assert.Len(t, f.history.byAction(waiting.ID, domain.HistoryDeferredAssignment), 1)

	untouched, _ := f.tickets.GetByID(ctx, younger.ID)
	assert.Equal(t, domain.TicketStatePending, untouched.State)
	assert.Nil(t, untouched.AgentID)

	assert.Len(t, f.dispatcher.byType(events.EventTicketPendingPromoted), 1)
}

func TestReopenTicketClearsClosedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	agent := f.addAgent(t, "agent", roleID)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateInProgress, &agent.ID)

	_, err := f.ticketSvc.CloseTicket(ctx, agent, ticket.ID, "fixed", nil)
	require.NoError(t, err)

	reopened, err := f.ticketSvc.ReopenTicket(ctx, requester, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStateOpen, reopened.State)
	assert.Nil(t, reopened.ClosedAt)
	require.NotNil(t, reopened.AgentID)
	assert.Equal(t, agent.ID, *reopened.AgentID)
	assert.Len(t, f.history.byAction(ticket.ID, domain.HistoryTicketReopened), 1)
}

func TestReopenRejectsNonResolvedTicket(t *testing.T) {
	f := newFixture(t)
	requester := f.addRequester(t, "alice")
	ticket := f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, nil)

	_, err := f.ticketSvc.ReopenTicket(context.Background(), requester, ticket.ID)
	require.Error(t, err)
}

func TestListTicketsScopedToRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addRequester(t, "alice")
	bob := f.addRequester(t, "bob")
	f.addTicket(t, alice.ID, nil, domain.TicketStateOpen, nil)
	f.addTicket(t, bob.ID, nil, domain.TicketStateOpen, nil)

	mine, err := f.ticketSvc.ListTickets(ctx, alice, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice.ID, mine[0].RequesterID)
}
