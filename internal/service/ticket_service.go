package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

// TicketService coordinates the ticket lifecycle: creation, edits, state
// changes, closure with rating and reopening.
type TicketService struct {
	tickets    repository.TicketRepository
	accounts   repository.AccountRepository
	history    repository.HistoryRepository
	rules      *CategoryRules
	assignment *AssignmentService
	balancer   *LoadBalancer
	chat       *ChatService
	dispatcher events.Dispatcher
	tx         persistence.TxRunner
	clk        clock.Clock
	cfg        config.AssignmentConfig
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	AccountRepo repository.AccountRepository
	HistoryRepo repository.HistoryRepository
	Rules       *CategoryRules
	Assignment  *AssignmentService
	Balancer    *LoadBalancer
	Chat        *ChatService
	Dispatcher  events.Dispatcher
	Tx          persistence.TxRunner
	Clock       clock.Clock
	Config      config.AssignmentConfig
	Logger      *zap.Logger
}

// NewTicketService wires the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		accounts:   deps.AccountRepo,
		history:    deps.HistoryRepo,
		rules:      deps.Rules,
		assignment: deps.Assignment,
		balancer:   deps.Balancer,
		chat:       deps.Chat,
		dispatcher: deps.Dispatcher,
		tx:         deps.Tx,
		clk:        clk,
		cfg:        deps.Config,
		logger:     logger,
	}
}

// TicketCreateInput describes the creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	CategoryID    *int64
	SubcategoryID *int64
}

// TicketEditInput carries the editable fields. Nil pointers mean "leave as
// is"; a category or subcategory present in the payload re-derives priority
// and resolution hours.
type TicketEditInput struct {
	Title         *string
	Description   *string
	CategoryID    *int64
	SubcategoryID *int64
}

// CreateTicket files a new ticket for the requester, derives its SLA
// fields from the category and immediately runs the assignment engine.
func (s *TicketService) CreateTicket(ctx context.Context, requester *domain.Account, input TicketCreateInput) (*domain.Ticket, *AssignmentOutcome, error) {
	if err := validateTicketInput(input.Title, input.Description); err != nil {
		return nil, nil, err
	}

	priority, hours, err := s.rules.DeriveSLA(ctx, input.CategoryID, input.SubcategoryID)
	if err != nil {
		return nil, nil, err
	}

	ticket := &domain.Ticket{
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		State:          domain.TicketStateOpen,
		Priority:       priority,
		CategoryID:     input.CategoryID,
		SubcategoryID:  input.SubcategoryID,
		RequesterID:    requester.ID,
		EstimatedHours: hours,
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}

	outcome, err := s.assignment.AssignInitial(ctx, ticket)
	if err != nil {
		return nil, nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    accountActor(requester),
		Payload: events.TicketCreatedPayload{
			RequesterID: requester.ID,
			CategoryID:  ticket.CategoryID,
			Priority:    ticket.Priority,
			Title:       ticket.Title,
			Pending:     !outcome.Assigned,
			Reason:      string(outcome.Reason),
		},
	})
	return ticket, outcome, nil
}

// CreateTicketForAgent files a ticket on behalf of a requester and routes
// it straight to the chosen agent, capacity permitting.
func (s *TicketService) CreateTicketForAgent(ctx context.Context, creator *domain.Account, requesterID, destinationAgentID int64, input TicketCreateInput) (*domain.Ticket, *AssignmentOutcome, error) {
	if !creator.IsAgent() {
		return nil, nil, apperrors.NewForbidden("only agents can file tickets on behalf of others")
	}
	if err := validateTicketInput(input.Title, input.Description); err != nil {
		return nil, nil, err
	}

	requester, err := s.account(ctx, requesterID)
	if err != nil {
		return nil, nil, err
	}
	destination, err := s.account(ctx, destinationAgentID)
	if err != nil {
		return nil, nil, err
	}

	priority, hours, err := s.rules.DeriveSLA(ctx, input.CategoryID, input.SubcategoryID)
	if err != nil {
		return nil, nil, err
	}

	ticket := &domain.Ticket{
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		State:          domain.TicketStateOpen,
		Priority:       priority,
		CategoryID:     input.CategoryID,
		SubcategoryID:  input.SubcategoryID,
		RequesterID:    requester.ID,
		EstimatedHours: hours,
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}

	outcome, err := s.assignment.AssignToAgent(ctx, ticket, destination, creator.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, outcome, nil
}

// EditTicket applies field changes. Requesters are bound to the edit window
// while the ticket is still OPEN; the assigned agent and admins are not.
func (s *TicketService) EditTicket(ctx context.Context, actor *domain.Account, ticketID int64, input TicketEditInput) (*domain.Ticket, error) {
	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.editPermitted(ticket, actor); err != nil {
		return nil, err
	}

	changed := make([]string, 0, 4)
	if input.Title != nil && strings.TrimSpace(*input.Title) != ticket.Title {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = strings.TrimSpace(*input.Title)
		changed = append(changed, "title")
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) != ticket.Description {
		ticket.Description = strings.TrimSpace(*input.Description)
		changed = append(changed, "description")
	}
	if input.CategoryID != nil || input.SubcategoryID != nil {
		if input.CategoryID != nil {
			ticket.CategoryID = input.CategoryID
			changed = append(changed, "category")
		}
		if input.SubcategoryID != nil {
			ticket.SubcategoryID = input.SubcategoryID
			changed = append(changed, "subcategory")
		}
		priority, hours, err := s.rules.DeriveSLA(ctx, ticket.CategoryID, ticket.SubcategoryID)
		if err != nil {
			return nil, err
		}
		ticket.Priority = priority
		ticket.EstimatedHours = hours
	}
	if len(changed) == 0 {
		return ticket, nil
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.record(ctx, ticket.ID, &actor.ID, domain.HistoryTicketEdited,
			fmt.Sprintf("changed: %s", strings.Join(changed, ", ")))
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// DeleteTicket removes a ticket. Requesters may only delete their own
// tickets and never once an agent is working them; admins bypass both.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.Account, ticketID int64) error {
	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if ticket.RequesterID != actor.ID {
			return apperrors.NewForbidden("ticket belongs to another requester")
		}
		if ticket.State == domain.TicketStateInProgress {
			return apperrors.NewForbidden("ticket is being worked and cannot be deleted")
		}
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
}

// ChangeState moves the ticket along the lifecycle. Only the assigned agent
// and admins drive state; the transition table rejects illegal moves.
func (s *TicketService) ChangeState(ctx context.Context, actor *domain.Account, ticketID int64, next domain.TicketState) (*domain.Ticket, error) {
	if !domain.ValidTicketState(next) {
		return nil, apperrors.NewValidationError("unknown ticket state", map[string]any{"state": next})
	}

	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.agentPermitted(ticket, actor); err != nil {
		return nil, err
	}
	if !domain.CanTransition(ticket.State, next) {
		return nil, apperrors.NewValidationError("invalid state transition", map[string]any{
			"from": ticket.State,
			"to":   next,
		})
	}
	if next == domain.TicketStateInProgress && !ticket.Assigned() {
		return nil, apperrors.NewValidationError("ticket cannot enter IN_PROGRESS without an assigned agent", map[string]any{
			"ticket_id": ticket.ID,
		})
	}

	prev := ticket.State
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket.State = next
		switch next {
		case domain.TicketStateResolved:
			now := s.clk.Now()
			ticket.ClosedAt = &now
		case domain.TicketStateOpen:
			ticket.ClosedAt = nil
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.record(ctx, ticket.ID, &actor.ID, domain.HistoryStateChange,
			fmt.Sprintf("state changed from %s to %s", prev, next))
	})
	if err != nil {
		ticket.State = prev
		return nil, err
	}

	if next == domain.TicketStateInProgress && s.chat != nil {
		if err := s.chat.SyncRoom(ctx, ticket); err != nil {
			s.logger.Warn("chat resync failed on state change", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStateChanged,
		TicketID: ticket.ID,
		Actor:    accountActor(actor),
		Payload:  events.TicketStateChangedPayload{OldState: prev, NewState: next},
	})
	return ticket, nil
}

// CloseTicket resolves the ticket with a closing comment and an optional
// 1-5 rating, then opportunistically pulls the oldest waiting ticket of
// the same category forward. The pull-forward is best effort and never
// fails the closure.
func (s *TicketService) CloseTicket(ctx context.Context, actor *domain.Account, ticketID int64, comment string, rating *int) (*domain.Ticket, error) {
	if rating != nil && !domain.ValidRating(*rating) {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": *rating})
	}

	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.closePermitted(ticket, actor); err != nil {
		return nil, err
	}
	if !domain.CanTransition(ticket.State, domain.TicketStateResolved) {
		return nil, apperrors.NewValidationError("ticket cannot be closed from its current state", map[string]any{
			"state": ticket.State,
		})
	}

	prev := ticket.State
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.clk.Now()
		ticket.State = domain.TicketStateResolved
		ticket.ClosedAt = &now
		ticket.ClosingComment = strings.TrimSpace(comment)
		ticket.Rating = rating
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		detail := "ticket closed"
		if rating != nil {
			detail = fmt.Sprintf("ticket closed, rated %d/5", *rating)
		}
		return s.record(ctx, ticket.ID, &actor.ID, domain.HistoryTicketClosed, detail)
	})
	if err != nil {
		ticket.State = prev
		return nil, err
	}

	if s.chat != nil {
		if err := s.chat.CloseRoom(ctx, ticket.ID); err != nil {
			s.logger.Warn("chat close failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.ID,
		Actor:    accountActor(actor),
		Payload:  events.TicketClosedPayload{Rating: rating, Comment: ticket.ClosingComment},
	})

	s.pullForwardPending(ctx, ticket)
	return ticket, nil
}

// ReopenTicket moves a resolved ticket back to OPEN and clears the closure
// timestamp. The previous agent stays attached.
func (s *TicketService) ReopenTicket(ctx context.Context, actor *domain.Account, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && ticket.RequesterID != actor.ID && !isAssignedAgent(ticket, actor) {
		return nil, apperrors.NewForbidden("not a participant on this ticket")
	}
	if ticket.State != domain.TicketStateResolved {
		return nil, apperrors.NewValidationError("only resolved tickets can be reopened", map[string]any{
			"state": ticket.State,
		})
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket.State = domain.TicketStateOpen
		ticket.ClosedAt = nil
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.record(ctx, ticket.ID, &actor.ID, domain.HistoryTicketReopened, "ticket reopened")
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.ID,
		Actor:    accountActor(actor),
		Payload:  events.TicketStateChangedPayload{OldState: domain.TicketStateResolved, NewState: domain.TicketStateOpen},
	})
	return ticket, nil
}

// GetTicket loads a ticket the actor is allowed to see.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Account, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAgent() && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("ticket belongs to another requester")
	}
	return ticket, nil
}

// ListTickets applies role-based scoping on top of the caller's filter:
// requesters only ever see their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.Account, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if !actor.IsAgent() {
		id := actor.ID
		filter.RequesterID = &id
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// History returns the audit trail for a ticket the actor can see.
func (s *TicketService) History(ctx context.Context, actor *domain.Account, ticketID int64) ([]domain.TicketHistory, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// pullForwardPending gives a freed capacity slot to the oldest ticket of
// the same category still waiting for an agent. Failures are logged only.
func (s *TicketService) pullForwardPending(ctx context.Context, closed *domain.Ticket) {
	if closed.CategoryID == nil {
		return
	}
	roleID, err := s.rules.ResponsibleRoleFor(ctx, *closed.CategoryID)
	if err != nil || roleID == nil {
		return
	}

	waiting, err := s.tickets.OldestInState(ctx, domain.TicketStatePending, *closed.CategoryID)
	if err != nil {
		s.logger.Warn("pull-forward lookup failed", zap.Int64("category_id", *closed.CategoryID), zap.Error(err))
		return
	}
	if waiting == nil {
		return
	}

	agent, err := s.balancer.FindAvailableAgent(ctx, *roleID, s.cfg.AgentCapacity)
	if err != nil || agent == nil {
		return
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		agentID := agent.ID
		waiting.AgentID = &agentID
		waiting.State = domain.TicketStateOpen
		if err := s.tickets.Update(ctx, waiting); err != nil {
			return apperrors.MapError(err)
		}
		return s.record(ctx, waiting.ID, nil, domain.HistoryDeferredAssignment,
			fmt.Sprintf("assigned to %s after capacity freed", agent.Username))
	})
	if err != nil {
		s.logger.Warn("pull-forward failed", zap.Int64("ticket_id", waiting.ID), zap.Error(err))
		return
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPendingPromoted,
		TicketID: waiting.ID,
		Actor:    events.Actor{},
		Payload:  events.TicketAssignedPayload{AgentID: agent.ID},
	})
}

func (s *TicketService) editPermitted(ticket *domain.Ticket, actor *domain.Account) error {
	if actor.IsAdmin() || isAssignedAgent(ticket, actor) {
		return nil
	}
	if ticket.RequesterID != actor.ID {
		return apperrors.NewForbidden("ticket belongs to another requester")
	}
	if !ticket.EditableAt(s.clk.Now(), s.cfg.EditWindow()) {
		return apperrors.NewForbidden("edit window has closed")
	}
	return nil
}

func (s *TicketService) agentPermitted(ticket *domain.Ticket, actor *domain.Account) error {
	if actor.IsAdmin() || isAssignedAgent(ticket, actor) {
		return nil
	}
	return apperrors.NewForbidden("only the assigned agent can change ticket state")
}

func (s *TicketService) closePermitted(ticket *domain.Ticket, actor *domain.Account) error {
	if actor.IsAdmin() || isAssignedAgent(ticket, actor) || ticket.RequesterID == actor.ID {
		return nil
	}
	return apperrors.NewForbidden("not a participant on this ticket")
}

func (s *TicketService) ticket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) account(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"account_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

func (s *TicketService) record(ctx context.Context, ticketID int64, actorID *int64, action, detail string) error {
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

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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

func isAssignedAgent(ticket *domain.Ticket, actor *domain.Account) bool {
	return ticket.AgentID != nil && *ticket.AgentID == actor.ID && actor.IsAgent()
}

func validateTicketInput(title, description string) error {
	cause := map[string]any{}
	if strings.TrimSpace(title) == "" {
		cause["title"] = "required"
	}
	if strings.TrimSpace(description) == "" {
		cause["description"] = "required"
	}
	if len(cause) > 0 {
		return apperrors.NewValidationError("missing required ticket fields", cause)
	}
	return nil
}
