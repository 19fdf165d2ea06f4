package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hrdesk/helpdesk-service/internal/clock"
	"github.com/hrdesk/helpdesk-service/internal/config"
	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/events"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
	"github.com/hrdesk/helpdesk-service/internal/repository"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// PendingReason explains why a ticket could not be handed to an agent and
// was parked in PENDING_ASSIGNMENT instead.
type PendingReason string

const (
	PendingReasonNone            PendingReason = ""
	PendingReasonNoRoleForCat    PendingReason = "no responsible role configured"
	PendingReasonNoAgentsInRole  PendingReason = "no active agents in role"
	PendingReasonOutsideHours    PendingReason = "outside business hours"
	PendingReasonCapacityFull    PendingReason = "all agents at capacity"
	PendingReasonDestinationBusy PendingReason = "destination agent at capacity"
)

// AssignmentOutcome reports the result of an assignment attempt.
type AssignmentOutcome struct {
	Assigned bool
	Agent    *domain.Account
	Reason   PendingReason
}

// SweepResult summarizes one scheduler pass.
type SweepResult struct {
	ExpiredOffers   int
	PendingScanned  int
	PendingAssigned int
}

// AssignmentService implements the assignment engine: initial routing,
// agent-to-agent reassignment offers, offer expiry and the pending queue.
type AssignmentService struct {
	tickets     repository.TicketRepository
	accounts    repository.AccountRepository
	assignments repository.AssignmentRepository
	history     repository.HistoryRepository
	balancer    *LoadBalancer
	rules       *CategoryRules
	chat        *ChatService
	dispatcher  events.Dispatcher
	tx          persistence.TxRunner
	clk         clock.Clock
	cfg         config.AssignmentConfig
	logger      *zap.Logger
}

// AssignmentDependencies bundles collaborators for the assignment engine.
type AssignmentDependencies struct {
	TicketRepo     repository.TicketRepository
	AccountRepo    repository.AccountRepository
	AssignmentRepo repository.AssignmentRepository
	HistoryRepo    repository.HistoryRepository
	Balancer       *LoadBalancer
	Rules          *CategoryRules
	Chat           *ChatService
	Dispatcher     events.Dispatcher
	Tx             persistence.TxRunner
	Clock          clock.Clock
	Config         config.AssignmentConfig
	Logger         *zap.Logger
}

// NewAssignmentService wires the engine.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		accounts:    deps.AccountRepo,
		assignments: deps.AssignmentRepo,
		history:     deps.HistoryRepo,
		balancer:    deps.Balancer,
		rules:       deps.Rules,
		chat:        deps.Chat,
		dispatcher:  deps.Dispatcher,
		tx:          deps.Tx,
		clk:         clk,
		cfg:         deps.Config,
		logger:      logger,
	}
}

// AssignInitial routes a ticket to the least busy eligible agent, or parks
// it in PENDING_ASSIGNMENT with a reason. The degrade checks run in order:
// category routing, agent pool, business hours, capacity. Safe to call
// again on a parked ticket; the sweep does exactly that.
func (s *AssignmentService) AssignInitial(ctx context.Context, ticket *domain.Ticket) (*AssignmentOutcome, error) {
	if ticket.CategoryID == nil {
		return s.markPending(ctx, ticket, PendingReasonNoRoleForCat)
	}

	roleID, err := s.rules.ResponsibleRoleFor(ctx, *ticket.CategoryID)
	if err != nil {
		return nil, err
	}
	if roleID == nil {
		return s.markPending(ctx, ticket, PendingReasonNoRoleForCat)
	}

	agents, err := s.accounts.ListActiveByRole(ctx, *roleID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(agents) == 0 {
		return s.markPending(ctx, ticket, PendingReasonNoAgentsInRole)
	}

	if !s.withinBusinessHours(s.clk.Now()) {
		return s.markPending(ctx, ticket, PendingReasonOutsideHours)
	}

	agent, err := s.balancer.FindAvailableAgent(ctx, *roleID, s.cfg.AgentCapacity)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return s.markPending(ctx, ticket, PendingReasonCapacityFull)
	}

	if err := s.attachAgent(ctx, ticket, agent, domain.HistoryAutomaticAssignment, nil); err != nil {
		return nil, err
	}
	return &AssignmentOutcome{Assigned: true, Agent: agent}, nil
}

// AssignToAgent hands a ticket directly to a chosen agent, used when an
// agent files a ticket on behalf of someone. A destination at capacity
// parks the ticket instead of failing.
func (s *AssignmentService) AssignToAgent(ctx context.Context, ticket *domain.Ticket, destination *domain.Account, actorID int64) (*AssignmentOutcome, error) {
	if !destination.IsAgent() || !destination.Active {
		return nil, apperrors.NewValidationError("destination account cannot hold tickets", map[string]any{
			"agent_id": destination.ID,
		})
	}

	load, err := s.balancer.ActiveLoad(ctx, destination.ID)
	if err != nil {
		return nil, err
	}
	if load >= s.cfg.AgentCapacity {
		return s.markPending(ctx, ticket, PendingReasonDestinationBusy)
	}

	if err := s.attachAgent(ctx, ticket, destination, domain.HistoryAutomaticAssignment, &actorID); err != nil {
		return nil, err
	}
	return &AssignmentOutcome{Assigned: true, Agent: destination}, nil
}

// ProposeReassignment opens a time-boxed offer moving the ticket from its
// current agent to another. The ticket stays with the origin until the
// destination accepts. At most one pending offer may exist per ticket.
func (s *AssignmentService) ProposeReassignment(ctx context.Context, ticketID int64, origin *domain.Account, destinationID int64) (*domain.TicketAssignment, error) {
	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AgentID == nil || *ticket.AgentID != origin.ID {
		if !origin.IsAdmin() {
			return nil, apperrors.NewForbidden("only the assigned agent can offer a reassignment")
		}
	}
	if ticket.AgentID != nil && *ticket.AgentID == destinationID {
		return nil, apperrors.NewValidationError("ticket is already assigned to that agent", map[string]any{
			"agent_id": destinationID,
		})
	}

	destination, err := s.agent(ctx, destinationID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.assignments.GetPendingForTicket(ctx, ticketID); err == nil && existing != nil {
		return nil, apperrors.NewConflict("ticket already has a pending reassignment offer", map[string]any{
			"assignment_id": existing.ID,
		})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	now := s.clk.Now()
	offer := &domain.TicketAssignment{
		TicketID:           ticket.ID,
		OriginAgentID:      originAgentID(ticket, origin),
		DestinationAgentID: destination.ID,
		State:              domain.AssignmentStatePending,
		SentAt:             now,
		Deadline:           now.Add(s.cfg.OfferTTL()),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.assignments.Create(ctx, offer); err != nil {
			return apperrors.MapError(err)
		}
		return s.record(ctx, ticket.ID, &origin.ID, domain.HistoryPendingReassignment,
			fmt.Sprintf("reassignment offered to %s, expires %s", destination.Username, offer.Deadline.Format(time.RFC3339)))
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReassignmentOffered,
		TicketID: ticket.ID,
		Actor:    accountActor(origin),
		Payload: events.ReassignmentOfferedPayload{
			AssignmentID:       offer.ID,
			OriginAgentID:      offer.OriginAgentID,
			DestinationAgentID: offer.DestinationAgentID,
			Deadline:           offer.Deadline,
		},
	})
	return offer, nil
}

// AcceptReassignment resolves the pending offer for the ticket in favor of
// the destination. A stale offer is expired lazily instead, without waiting
// for the sweep.
func (s *AssignmentService) AcceptReassignment(ctx context.Context, ticketID int64, actor *domain.Account) (*domain.Ticket, error) {
	offer, err := s.pendingOffer(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if offer.DestinationAgentID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("offer belongs to another agent")
	}

	now := s.clk.Now()
	if offer.Expired(now) {
		if err := s.expireOffer(ctx, offer); err != nil {
			return nil, err
		}
		return nil, apperrors.NewConflict("reassignment offer has expired", map[string]any{
			"assignment_id": offer.ID,
		})
	}

	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	destination, err := s.agent(ctx, offer.DestinationAgentID)
	if err != nil {
		return nil, err
	}

	prevAgent := ticket.AgentID
	prevAgentName := "N/A"
	if prevAgent != nil {
		if prior, err := s.accounts.GetByID(ctx, *prevAgent); err == nil {
			prevAgentName = prior.Username
		}
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		won, err := s.assignments.ResolvePending(ctx, offer.ID, domain.AssignmentStateAccepted)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !won {
			return apperrors.NewConflict("reassignment offer is no longer pending", map[string]any{
				"assignment_id": offer.ID,
			})
		}

		agentID := destination.ID
		ticket.AgentID = &agentID
		if ticket.State != domain.TicketStateInProgress && domain.CanTransition(ticket.State, domain.TicketStateInProgress) {
			ticket.State = domain.TicketStateInProgress
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.record(ctx, ticket.ID, &actor.ID, domain.HistoryReassignmentAccepted,
			fmt.Sprintf("ticket taken over by %s, previous agent: %s", destination.Username, prevAgentName))
	})
	if err != nil {
		return nil, err
	}

	if s.chat != nil {
		if err := s.chat.SyncRoom(ctx, ticket); err != nil {
			s.logger.Warn("chat resync failed after reassignment", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventReassignmentResolved,
		TicketID: ticket.ID,
		Actor:    accountActor(actor),
		Payload: events.ReassignmentResolvedPayload{
			AssignmentID:       offer.ID,
			OriginAgentID:      offer.OriginAgentID,
			DestinationAgentID: offer.DestinationAgentID,
			Outcome:            domain.AssignmentStateAccepted,
		},
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    accountActor(actor),
		Payload: events.TicketAssignedPayload{
			AgentID:     destination.ID,
			PrevAgentID: prevAgent,
		},
	})
	return ticket, nil
}

// RejectReassignment declines the pending offer. The ticket keeps its
// current agent untouched.
func (s *AssignmentService) RejectReassignment(ctx context.Context, ticketID int64, actor *domain.Account) error {
	offer, err := s.pendingOffer(ctx, ticketID)
	if err != nil {
		return err
	}
	if offer.DestinationAgentID != actor.ID && !actor.IsAdmin() {
		return apperrors.NewForbidden("offer belongs to another agent")
	}

	if offer.Expired(s.clk.Now()) {
		return s.expireOffer(ctx, offer)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		won, err := s.assignments.ResolvePending(ctx, offer.ID, domain.AssignmentStateRejected)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !won {
			return apperrors.NewConflict("reassignment offer is no longer pending", map[string]any{
				"assignment_id": offer.ID,
			})
		}
		return s.record(ctx, ticketID, &actor.ID, domain.HistoryReassignmentRejected,
			fmt.Sprintf("offer declined, ticket remains with agent %d", offer.OriginAgentID))
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReassignmentResolved,
		TicketID: ticketID,
		Actor:    accountActor(actor),
		Payload: events.ReassignmentResolvedPayload{
			AssignmentID:       offer.ID,
			OriginAgentID:      offer.OriginAgentID,
			DestinationAgentID: offer.DestinationAgentID,
			Outcome:            domain.AssignmentStateRejected,
		},
	})
	return nil
}

// PendingOffersFor lists the reassignment inbox of an agent.
func (s *AssignmentService) PendingOffersFor(ctx context.Context, agentID int64) ([]domain.TicketAssignment, error) {
	offers, err := s.assignments.ListPendingByDestination(ctx, agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return offers, nil
}

// ExpireStaleOffers transitions every pending offer past its deadline to
// EXPIRED. Each offer is its own transaction so one failure does not block
// the rest of the batch.
func (s *AssignmentService) ExpireStaleOffers(ctx context.Context) (int, error) {
	stale, err := s.assignments.ListExpired(ctx, s.clk.Now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	expired := 0
	for i := range stale {
		if err := s.expireOffer(ctx, &stale[i]); err != nil {
			s.logger.Error("failed to expire reassignment offer",
				zap.Int64("assignment_id", stale[i].ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// ProcessPendingTickets retries assignment for every parked ticket, oldest
// first. Tickets that still cannot be placed stay parked without extra
// history noise.
func (s *AssignmentService) ProcessPendingTickets(ctx context.Context) (int, int, error) {
	parked, err := s.tickets.ListByState(ctx, domain.TicketStatePendingAssignment)
	if err != nil {
		return 0, 0, apperrors.MapError(err)
	}

	assigned := 0
	for i := range parked {
		outcome, err := s.AssignInitial(ctx, &parked[i])
		if err != nil {
			s.logger.Error("pending ticket retry failed",
				zap.Int64("ticket_id", parked[i].ID), zap.Error(err))
			continue
		}
		if outcome.Assigned {
			assigned++
		}
	}
	return len(parked), assigned, nil
}

// Sweep runs one scheduler pass: expire stale offers, then drain the
// pending queue.
func (s *AssignmentService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	expired, err := s.ExpireStaleOffers(ctx)
	if err != nil {
		return result, err
	}
	result.ExpiredOffers = expired

	scanned, assigned, err := s.ProcessPendingTickets(ctx)
	if err != nil {
		return result, err
	}
	result.PendingScanned = scanned
	result.PendingAssigned = assigned
	return result, nil
}

// attachAgent commits agent attachment, the state adjustment and the audit
// row as one unit. A parked ticket being picked up moves to PENDING; a
// fresh ticket stays OPEN so the requester edit window is preserved.
func (s *AssignmentService) attachAgent(ctx context.Context, ticket *domain.Ticket, agent *domain.Account, action string, actorID *int64) error {
	prevAgent := ticket.AgentID
	wasParked := ticket.State == domain.TicketStatePendingAssignment

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		agentID := agent.ID
		ticket.AgentID = &agentID
		if wasParked {
			ticket.State = domain.TicketStatePending
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		detail := fmt.Sprintf("assigned to %s", agent.Username)
		if wasParked {
			detail = fmt.Sprintf("assigned to %s after waiting in queue", agent.Username)
		}
		return s.record(ctx, ticket.ID, actorID, action, detail)
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    events.Actor{AccountID: actorID},
		Payload: events.TicketAssignedPayload{
			AgentID:     agent.ID,
			PrevAgentID: prevAgent,
		},
	})
	return nil
}

// markPending parks the ticket. Only an actual state change produces a
// history row; re-sweeping an already parked ticket is silent.
func (s *AssignmentService) markPending(ctx context.Context, ticket *domain.Ticket, reason PendingReason) (*AssignmentOutcome, error) {
	outcome := &AssignmentOutcome{Assigned: false, Reason: reason}
	if ticket.State == domain.TicketStatePendingAssignment {
		return outcome, nil
	}
	if !domain.CanTransition(ticket.State, domain.TicketStatePendingAssignment) {
		return outcome, nil
	}

	prevState := ticket.State
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket.State = domain.TicketStatePendingAssignment
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.record(ctx, ticket.ID, nil, domain.HistoryPendingAssignment,
			fmt.Sprintf("assignment deferred: %s", reason))
	})
	if err != nil {
		ticket.State = prevState
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStateChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{},
		Payload: events.TicketStateChangedPayload{
			OldState: prevState,
			NewState: domain.TicketStatePendingAssignment,
			Comment:  string(reason),
		},
	})
	return outcome, nil
}

// expireOffer is shared by the sweep and the lazy path in accept/reject,
// so both produce the same audit row and notification. The conditional
// update means only one of them wins.
func (s *AssignmentService) expireOffer(ctx context.Context, offer *domain.TicketAssignment) error {
	var won bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		won, err = s.assignments.ResolvePending(ctx, offer.ID, domain.AssignmentStateExpired)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !won {
			return nil
		}
		return s.record(ctx, offer.TicketID, nil, domain.HistoryAssignmentExpired,
			fmt.Sprintf("offer to agent %d expired, ticket remains with agent %d",
				offer.DestinationAgentID, offer.OriginAgentID))
	})
	if err != nil || !won {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReassignmentExpired,
		TicketID: offer.TicketID,
		Actor:    events.Actor{},
		Payload: events.ReassignmentResolvedPayload{
			AssignmentID:       offer.ID,
			OriginAgentID:      offer.OriginAgentID,
			DestinationAgentID: offer.DestinationAgentID,
			Outcome:            domain.AssignmentStateExpired,
		},
	})
	return nil
}

// withinBusinessHours reports whether automatic assignment may still hand
// out tickets. Submissions after the cutoff wait for the next sweep inside
// business hours.
func (s *AssignmentService) withinBusinessHours(now time.Time) bool {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.CutoffHour, 0, 0, 0, now.Location())
	return !now.After(cutoff)
}

func (s *AssignmentService) record(ctx context.Context, ticketID int64, actorID *int64, action, detail string) error {
	entry := &domain.TicketHistory{
		TicketID: ticketID,
		ActorID:  actorID,
		Action:   action,
		Detail:   detail,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AssignmentService) ticket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *AssignmentService) agent(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !account.IsAgent() || !account.Active {
		return nil, apperrors.NewValidationError("account cannot hold tickets", map[string]any{
			"agent_id": id,
		})
	}
	return account, nil
}

func (s *AssignmentService) pendingOffer(ctx context.Context, ticketID int64) (*domain.TicketAssignment, error) {
	offer, err := s.assignments.GetPendingForTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("reassignment offer", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return offer, nil
}

func (s *AssignmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clk.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func accountActor(account *domain.Account) events.Actor {
	if account == nil {
		return events.Actor{}
	}
	id := account.ID
	return events.Actor{AccountID: &id, Kind: account.RoleKind}
}

func originAgentID(ticket *domain.Ticket, fallback *domain.Account) int64 {
	if ticket.AgentID != nil {
		return *ticket.AgentID
	}
	return fallback.ID
}
