package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
)

// NotificationRepository stores the persisted leg of the fan-out.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByAccount(ctx context.Context, accountID int64, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, accountID int64) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (account_id, kind, message, ticket_id, read_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`

	return persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query,
		notification.AccountID,
		notification.Kind,
		notification.Message,
		notification.TicketID,
		notification.Read,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByAccount(ctx context.Context, accountID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `
        SELECT id, account_id, kind, message, ticket_id, read_flag, created_at
        FROM notifications WHERE account_id=$1`
	if unreadOnly {
		query += ` AND NOT read_flag`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`
	if limit <= 0 {
		limit = 50
	}

	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.AccountID,
			&notification.Kind,
			&notification.Message,
			&notification.TicketID,
			&notification.Read,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, accountID int64) error {
	const query = `UPDATE notifications SET read_flag=TRUE WHERE id=$1 AND account_id=$2`

	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, query, id, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
