package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/helpdesk-service/internal/domain"
)

func TestFindAvailableAgentSkipsFullAgents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	full := f.addAgent(t, "full", roleID)
	free := f.addAgent(t, "free", roleID)
	requester := f.addRequester(t, "alice")

	for i := 0; i < f.cfg.AgentCapacity; i++ {
		f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, &full.ID)
	}

	agent, err := f.balancer.FindAvailableAgent(ctx, roleID, f.cfg.AgentCapacity)
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, free.ID, agent.ID)
}

func TestFindAvailableAgentNilWhenAllFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	agent := f.addAgent(t, "only", roleID)
	requester := f.addRequester(t, "alice")

	for i := 0; i < f.cfg.AgentCapacity; i++ {
		f.addTicket(t, requester.ID, nil, domain.TicketStateInProgress, &agent.ID)
	}

	got, err := f.balancer.FindAvailableAgent(ctx, roleID, f.cfg.AgentCapacity)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindAvailableAgentIgnoresParkedStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	agent := f.addAgent(t, "only", roleID)
	requester := f.addRequester(t, "alice")

	// PENDING and RESOLVED tickets occupy no capacity slot.
	for i := 0; i < f.cfg.AgentCapacity; i++ {
		f.addTicket(t, requester.ID, nil, domain.TicketStatePending, &agent.ID)
		f.addTicket(t, requester.ID, nil, domain.TicketStateResolved, &agent.ID)
	}

	got, err := f.balancer.FindAvailableAgent(ctx, roleID, f.cfg.AgentCapacity)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, agent.ID, got.ID)
}

func TestFindLeastLoadedAgentCountsAllUnresolvedWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roleID := int64(7)
	busy := f.addAgent(t, "busy", roleID)
	lighter := f.addAgent(t, "lighter", roleID)
	requester := f.addRequester(t, "alice")

	// PENDING counts toward least-loaded even though it is outside the
	// capacity check.
	f.addTicket(t, requester.ID, nil, domain.TicketStatePending, &busy.ID)
	f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, &busy.ID)
	f.addTicket(t, requester.ID, nil, domain.TicketStateOpen, &lighter.ID)
	f.addTicket(t, requester.ID, nil, domain.TicketStateResolved, &lighter.ID)

	agent, err := f.balancer.FindLeastLoadedAgent(ctx, roleID)
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, lighter.ID, agent.ID)
}

func TestFindLeastLoadedAgentNilForEmptyRole(t *testing.T) {
	f := newFixture(t)

	agent, err := f.balancer.FindLeastLoadedAgent(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, agent)
}
