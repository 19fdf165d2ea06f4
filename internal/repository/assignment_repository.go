package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
)

// AssignmentRepository stores reassignment offers.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.TicketAssignment) error
	GetByID(ctx context.Context, id int64) (*domain.TicketAssignment, error)
	GetPendingForTicket(ctx context.Context, ticketID int64) (*domain.TicketAssignment, error)
	ListPendingByDestination(ctx context.Context, agentID int64) ([]domain.TicketAssignment, error)
	ListExpired(ctx context.Context, now time.Time) ([]domain.TicketAssignment, error)
	// ResolvePending conditionally moves a PENDING offer to the given
	// terminal state. Returns false when the offer was already resolved,
	// which is how the accept-vs-sweep race is decided: whoever commits
	// first wins, the other side observes false.
	ResolvePending(ctx context.Context, id int64, next domain.AssignmentState) (bool, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `
        id, ticket_id, origin_agent_id, destination_agent_id, state,
        sent_at, deadline, created_at, updated_at`

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.TicketAssignment) error {
	const query = `
        INSERT INTO ticket_assignments (ticket_id, origin_agent_id, destination_agent_id, state, sent_at, deadline)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query,
		assignment.TicketID,
		assignment.OriginAgentID,
		assignment.DestinationAgentID,
		assignment.State,
		assignment.SentAt,
		assignment.Deadline,
	).Scan(&assignment.ID, &assignment.CreatedAt, &assignment.UpdatedAt)
}

func (r *assignmentRepository) GetByID(ctx context.Context, id int64) (*domain.TicketAssignment, error) {
	query := `SELECT` + assignmentColumns + ` FROM ticket_assignments WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *assignmentRepository) GetPendingForTicket(ctx context.Context, ticketID int64) (*domain.TicketAssignment, error) {
	query := `SELECT` + assignmentColumns + `
        FROM ticket_assignments WHERE ticket_id=$1 AND state=$2
        ORDER BY sent_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, ticketID, domain.AssignmentStatePending)
}

func (r *assignmentRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.TicketAssignment, error) {
	var assignment domain.TicketAssignment
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, args...).Scan(
		&assignment.ID,
		&assignment.TicketID,
		&assignment.OriginAgentID,
		&assignment.DestinationAgentID,
		&assignment.State,
		&assignment.SentAt,
		&assignment.Deadline,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepository) ListPendingByDestination(ctx context.Context, agentID int64) ([]domain.TicketAssignment, error) {
	query := `SELECT` + assignmentColumns + `
        FROM ticket_assignments WHERE destination_agent_id=$1 AND state=$2
        ORDER BY sent_at DESC`
	return r.list(ctx, query, agentID, domain.AssignmentStatePending)
}

func (r *assignmentRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.TicketAssignment, error) {
	query := `SELECT` + assignmentColumns + `
        FROM ticket_assignments WHERE state=$1 AND deadline < $2
        ORDER BY deadline ASC`
	return r.list(ctx, query, domain.AssignmentStatePending, now)
}

func (r *assignmentRepository) ResolvePending(ctx context.Context, id int64, next domain.AssignmentState) (bool, error) {
	const query = `
        UPDATE ticket_assignments SET state=$1, updated_at=NOW()
        WHERE id=$2 AND state=$3`

	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, query, next, id, domain.AssignmentStatePending)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *assignmentRepository) list(ctx context.Context, query string, args ...any) ([]domain.TicketAssignment, error) {
	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAssignment
	for rows.Next() {
		var assignment domain.TicketAssignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.TicketID,
			&assignment.OriginAgentID,
			&assignment.DestinationAgentID,
			&assignment.State,
			&assignment.SentAt,
			&assignment.Deadline,
			&assignment.CreatedAt,
			&assignment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}
