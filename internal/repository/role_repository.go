package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
)

// RoleRepository handles persistence for roles.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id int64) (*domain.Role, error)
	GetByKey(ctx context.Context, key string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository instantiates the repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (key, display_name, description, base_kind, system_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`

	return persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query,
		role.Key,
		role.DisplayName,
		role.Description,
		role.BaseKind,
		role.System,
	).Scan(&role.ID)
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	const query = `
        UPDATE roles SET key=$1, display_name=$2, description=$3, base_kind=$4
        WHERE id=$5 AND NOT system_flag`

	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, query,
		role.Key,
		role.DisplayName,
		role.Description,
		role.BaseKind,
		role.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *roleRepository) GetByID(ctx context.Context, id int64) (*domain.Role, error) {
	const query = `
        SELECT id, key, display_name, description, base_kind, system_flag
        FROM roles WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *roleRepository) GetByKey(ctx context.Context, key string) (*domain.Role, error) {
	const query = `
        SELECT id, key, display_name, description, base_kind, system_flag
        FROM roles WHERE key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *roleRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Role, error) {
	var role domain.Role
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&role.ID,
		&role.Key,
		&role.DisplayName,
		&role.Description,
		&role.BaseKind,
		&role.System,
	); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) List(ctx context.Context) ([]domain.Role, error) {
	const query = `
        SELECT id, key, display_name, description, base_kind, system_flag
        FROM roles ORDER BY id ASC`

	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(
			&role.ID,
			&role.Key,
			&role.DisplayName,
			&role.Description,
			&role.BaseKind,
			&role.System,
		); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}
