package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	RequesterID *int64
	AgentID     *int64
	CategoryID  *int64
	States      []domain.TicketState
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListByState(ctx context.Context, state domain.TicketState) ([]domain.Ticket, error)
	CountByAgent(ctx context.Context, agentID int64, states []domain.TicketState) (int, error)
	CountByAgentExcluding(ctx context.Context, agentID int64, excluded domain.TicketState) (int, error)
	OldestInState(ctx context.Context, state domain.TicketState, categoryID int64) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        id, title, description, state, priority, category_id, subcategory_id,
        requester_id, agent_id, estimated_hours, rating, closing_comment,
        created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, state, priority, category_id, subcategory_id,
            requester_id, agent_id, estimated_hours, rating, closing_comment)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`

	return persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.State,
		ticket.Priority,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.RequesterID,
		ticket.AgentID,
		ticket.EstimatedHours,
		ticket.Rating,
		ticket.ClosingComment,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, state=$3, priority=$4, category_id=$5,
            subcategory_id=$6, agent_id=$7, estimated_hours=$8, rating=$9, closing_comment=$10,
            closed_at=$11, updated_at=NOW()
        WHERE id=$12`

	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.State,
		ticket.Priority,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.AgentID,
		ticket.EstimatedHours,
		ticket.Rating,
		ticket.ClosingComment,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT` + ticketColumns + ` FROM tickets WHERE id=$1`

	var ticket domain.Ticket
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.State,
		&ticket.Priority,
		&ticket.CategoryID,
		&ticket.SubcategoryID,
		&ticket.RequesterID,
		&ticket.AgentID,
		&ticket.EstimatedHours,
		&ticket.Rating,
		&ticket.ClosingComment,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Delete hard-deletes a ticket. History and assignment rows go with it via
// ON DELETE CASCADE.
func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("agent_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListByState returns tickets in the given state, oldest first, so the
// pending sweep processes them in arrival order.
func (r *ticketRepository) ListByState(ctx context.Context, state domain.TicketState) ([]domain.Ticket, error) {
	query := `SELECT` + ticketColumns + ` FROM tickets WHERE state=$1 ORDER BY created_at ASC`

	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByAgent(ctx context.Context, agentID int64, states []domain.TicketState) (int, error) {
	args := []any{agentID}
	placeholders := make([]string, len(states))
	for i, state := range states {
		args = append(args, state)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE agent_id=$1 AND state IN (%s)`,
		strings.Join(placeholders, ","))

	var count int
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) CountByAgentExcluding(ctx context.Context, agentID int64, excluded domain.TicketState) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE agent_id=$1 AND state<>$2`

	var count int
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, agentID, excluded).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// OldestInState returns the oldest ticket of the category in the given
// state, or nil when none exists.
func (r *ticketRepository) OldestInState(ctx context.Context, state domain.TicketState, categoryID int64) (*domain.Ticket, error) {
	query := `SELECT` + ticketColumns + `
        FROM tickets WHERE state=$1 AND category_id=$2
        ORDER BY created_at ASC LIMIT 1`

	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query, state, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, nil
	}
	return &tickets[0], nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.State,
			&ticket.Priority,
			&ticket.CategoryID,
			&ticket.SubcategoryID,
			&ticket.RequesterID,
			&ticket.AgentID,
			&ticket.EstimatedHours,
			&ticket.Rating,
			&ticket.ClosingComment,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
