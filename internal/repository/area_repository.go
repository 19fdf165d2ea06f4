package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
)

// AreaRepository handles persistence for organizational areas.
type AreaRepository interface {
	Create(ctx context.Context, area *domain.Area) error
	Update(ctx context.Context, area *domain.Area) error
	GetByID(ctx context.Context, id int64) (*domain.Area, error)
	List(ctx context.Context) ([]domain.Area, error)
}

type areaRepository struct {
	pool *pgxpool.Pool
}

// NewAreaRepository instantiates the repository.
func NewAreaRepository(pool *pgxpool.Pool) AreaRepository {
	return &areaRepository{pool: pool}
}

func (r *areaRepository) Create(ctx context.Context, area *domain.Area) error {
	const query = `
        INSERT INTO areas (name, description) VALUES ($1,$2) RETURNING id`
	return persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, area.Name, area.Description).Scan(&area.ID)
}

func (r *areaRepository) Update(ctx context.Context, area *domain.Area) error {
	const query = `UPDATE areas SET name=$1, description=$2 WHERE id=$3`
	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, query, area.Name, area.Description, area.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *areaRepository) GetByID(ctx context.Context, id int64) (*domain.Area, error) {
	const query = `SELECT id, name, description FROM areas WHERE id=$1`
	var area domain.Area
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, id).Scan(&area.ID, &area.Name, &area.Description); err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *areaRepository) List(ctx context.Context) ([]domain.Area, error) {
	const query = `SELECT id, name, description FROM areas ORDER BY name ASC`
	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Area
	for rows.Next() {
		var area domain.Area
		if err := rows.Scan(&area.ID, &area.Name, &area.Description); err != nil {
			return nil, err
		}
		result = append(result, area)
	}
	return result, rows.Err()
}
