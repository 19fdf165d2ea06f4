package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
)

// ChatRoomRepository provisions per-ticket chat rooms. The transport layer
// (WebSocket fan-out) lives elsewhere; this only tracks rooms and their
// membership.
type ChatRoomRepository interface {
	EnsureRoom(ctx context.Context, ticketID int64) (*domain.ChatRoom, error)
	GetByTicket(ctx context.Context, ticketID int64) (*domain.ChatRoom, error)
	ReplaceParticipants(ctx context.Context, roomID int64, accountIDs []int64) error
	Deactivate(ctx context.Context, roomID int64) error
}

type chatRoomRepository struct {
	pool *pgxpool.Pool
}

// NewChatRoomRepository builds repository.
func NewChatRoomRepository(pool *pgxpool.Pool) ChatRoomRepository {
	return &chatRoomRepository{pool: pool}
}

// EnsureRoom returns the ticket's room, creating and reactivating as needed.
func (r *chatRoomRepository) EnsureRoom(ctx context.Context, ticketID int64) (*domain.ChatRoom, error) {
	const query = `
        INSERT INTO chat_rooms (ticket_id, active)
        VALUES ($1, TRUE)
        ON CONFLICT (ticket_id) DO UPDATE SET active=TRUE
        RETURNING id, ticket_id, active, created_at`

	var room domain.ChatRoom
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, ticketID).Scan(
		&room.ID,
		&room.TicketID,
		&room.Active,
		&room.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRoomRepository) GetByTicket(ctx context.Context, ticketID int64) (*domain.ChatRoom, error) {
	const query = `
        SELECT id, ticket_id, active, created_at
        FROM chat_rooms WHERE ticket_id=$1`

	var room domain.ChatRoom
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, ticketID).Scan(
		&room.ID,
		&room.TicketID,
		&room.Active,
		&room.CreatedAt,
	); err != nil {
		return nil, err
	}

	const participantQuery = `
        SELECT account_id FROM chat_room_participants WHERE room_id=$1 ORDER BY account_id`
	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, participantQuery, room.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var accountID int64
		if err := rows.Scan(&accountID); err != nil {
			return nil, err
		}
		room.Participants = append(room.Participants, accountID)
	}
	return &room, rows.Err()
}

// ReplaceParticipants clears membership and re-inserts the given accounts.
// Full resync keeps the operation idempotent across repeated transitions.
func (r *chatRoomRepository) ReplaceParticipants(ctx context.Context, roomID int64, accountIDs []int64) error {
	q := persistence.QuerierFor(ctx, r.pool)
	if _, err := q.Exec(ctx, `DELETE FROM chat_room_participants WHERE room_id=$1`, roomID); err != nil {
		return err
	}
	for _, accountID := range accountIDs {
		if _, err := q.Exec(ctx,
			`INSERT INTO chat_room_participants (room_id, account_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			roomID, accountID); err != nil {
			return err
		}
	}
	return nil
}

func (r *chatRoomRepository) Deactivate(ctx context.Context, roomID int64) error {
	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, `UPDATE chat_rooms SET active=FALSE WHERE id=$1`, roomID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
