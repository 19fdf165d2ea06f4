package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
)

// AccountRepository defines persistence access for accounts. It doubles as
// the account directory consumed by the load balancer.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	ListActiveByRole(ctx context.Context, roleID int64) ([]domain.Account, error)
	ListByKind(ctx context.Context, kind domain.RoleKind) ([]domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `
        a.id, a.username, a.email, a.password_hash, a.role_id,
        COALESCE(r.base_kind, 'REQUESTER'), a.area_id, a.active, a.created_at, a.updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (username, email, password_hash, role_id, area_id, active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.RoleID,
		account.AreaID,
		account.Active,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts
        SET username=$1, email=$2, password_hash=$3, role_id=$4, area_id=$5, active=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.RoleID,
		account.AreaID,
		account.Active,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
        SELECT` + accountColumns + `
        FROM accounts a LEFT JOIN roles r ON r.id = a.role_id
        WHERE a.id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
        SELECT` + accountColumns + `
        FROM accounts a LEFT JOIN roles r ON r.id = a.role_id
        WHERE a.email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *accountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var account domain.Account
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.RoleID,
		&account.RoleKind,
		&account.AreaID,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListActiveByRole returns the active accounts holding the given role,
// ordered by id so load-balancer tie-breaks are deterministic.
func (r *accountRepository) ListActiveByRole(ctx context.Context, roleID int64) ([]domain.Account, error) {
	query := `
        SELECT` + accountColumns + `
        FROM accounts a LEFT JOIN roles r ON r.id = a.role_id
        WHERE a.role_id=$1 AND a.active
        ORDER BY a.id ASC`
	return r.list(ctx, query, roleID)
}

func (r *accountRepository) ListByKind(ctx context.Context, kind domain.RoleKind) ([]domain.Account, error) {
	query := `
        SELECT` + accountColumns + `
        FROM accounts a JOIN roles r ON r.id = a.role_id
        WHERE r.base_kind=$1 AND a.active
        ORDER BY a.id ASC`
	return r.list(ctx, query, kind)
}

func (r *accountRepository) list(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.Email,
			&account.PasswordHash,
			&account.RoleID,
			&account.RoleKind,
			&account.AreaID,
			&account.Active,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}
