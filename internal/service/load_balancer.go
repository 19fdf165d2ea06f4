package service

import (
	"context"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/repository"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// capacityStates are the states that count against an agent's cap. Tickets
// already resolved or parked in a pending queue do not occupy a slot.
var capacityStates = []domain.TicketState{
	domain.TicketStateOpen,
	domain.TicketStateInProgress,
}

// LoadBalancer picks agents for ticket assignment based on current workload.
type LoadBalancer struct {
	accounts repository.AccountRepository
	tickets  repository.TicketRepository
}

// NewLoadBalancer creates the balancer.
func NewLoadBalancer(accounts repository.AccountRepository, tickets repository.TicketRepository) *LoadBalancer {
	return &LoadBalancer{accounts: accounts, tickets: tickets}
}

// FindLeastLoadedAgent returns the active agent of the role carrying the
// fewest unresolved tickets. Ties break on the lowest account id, which is
// the iteration order of the underlying query. Returns nil when the role
// has no active agents.
func (b *LoadBalancer) FindLeastLoadedAgent(ctx context.Context, roleID int64) (*domain.Account, error) {
	agents, err := b.accounts.ListActiveByRole(ctx, roleID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var best *domain.Account
	bestLoad := 0
	for i := range agents {
		load, err := b.tickets.CountByAgentExcluding(ctx, agents[i].ID, domain.TicketStateResolved)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if best == nil || load < bestLoad {
			best = &agents[i]
			bestLoad = load
		}
	}
	return best, nil
}

// FindAvailableAgent returns the least busy active agent of the role whose
// open and in-progress ticket count is below capacity. Returns nil when
// every agent is at capacity; callers treat that as a normal outcome, not
// an error.
func (b *LoadBalancer) FindAvailableAgent(ctx context.Context, roleID int64, capacity int) (*domain.Account, error) {
	agents, err := b.accounts.ListActiveByRole(ctx, roleID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var best *domain.Account
	bestLoad := 0
	for i := range agents {
		load, err := b.tickets.CountByAgent(ctx, agents[i].ID, capacityStates)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if load >= capacity {
			continue
		}
		if best == nil || load < bestLoad {
			best = &agents[i]
			bestLoad = load
		}
	}
	return best, nil
}

// ActiveLoad reports how many open or in-progress tickets the agent holds.
func (b *LoadBalancer) ActiveLoad(ctx context.Context, agentID int64) (int, error) {
	load, err := b.tickets.CountByAgent(ctx, agentID, capacityStates)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return load, nil
}
