package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
)

// CategoryRepository handles persistence for categories and subcategories.
// Read-only from the assignment engine's perspective; mutation endpoints are
// admin-facing.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error
	GetSubcategoryByID(ctx context.Context, id int64) (*domain.Subcategory, error)
	ListSubcategories(ctx context.Context, categoryID int64) ([]domain.Subcategory, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository instantiates the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, active, sort_order, auto_priority, resolution_hours, responsible_role_id)
        VALUES ($1,$2,$3,
            (SELECT COALESCE(MAX(sort_order),0)+1 FROM categories),
            $4,$5,$6)
        RETURNING id, sort_order`

	return persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.Active,
		category.AutoPriority,
		category.ResolutionHours,
		category.ResponsibleRoleID,
	).Scan(&category.ID, &category.SortOrder)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories
        SET name=$1, description=$2, active=$3, auto_priority=$4, resolution_hours=$5, responsible_role_id=$6
        WHERE id=$7`

	cmd, err := persistence.QuerierFor(ctx, r.pool).Exec(ctx, query,
		category.Name,
		category.Description,
		category.Active,
		category.AutoPriority,
		category.ResolutionHours,
		category.ResponsibleRoleID,
		category.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, active, sort_order, auto_priority, resolution_hours, responsible_role_id
        FROM categories WHERE id=$1`

	var category domain.Category
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.Active,
		&category.SortOrder,
		&category.AutoPriority,
		&category.ResolutionHours,
		&category.ResponsibleRoleID,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	query := `
        SELECT id, name, description, active, sort_order, auto_priority, resolution_hours, responsible_role_id
        FROM categories`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY sort_order ASC, name ASC`

	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.Active,
			&category.SortOrder,
			&category.AutoPriority,
			&category.ResolutionHours,
			&category.ResponsibleRoleID,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error {
	const query = `
        INSERT INTO subcategories (category_id, name, description, resolution_hours)
        VALUES ($1,$2,$3,$4)
        RETURNING id`

	return persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query,
		sub.CategoryID,
		sub.Name,
		sub.Description,
		sub.ResolutionHours,
	).Scan(&sub.ID)
}

func (r *categoryRepository) GetSubcategoryByID(ctx context.Context, id int64) (*domain.Subcategory, error) {
	const query = `
        SELECT id, category_id, name, description, resolution_hours
        FROM subcategories WHERE id=$1`

	var sub domain.Subcategory
	if err := persistence.QuerierFor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.CategoryID,
		&sub.Name,
		&sub.Description,
		&sub.ResolutionHours,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *categoryRepository) ListSubcategories(ctx context.Context, categoryID int64) ([]domain.Subcategory, error) {
	const query = `
        SELECT id, category_id, name, description, resolution_hours
        FROM subcategories WHERE category_id=$1 ORDER BY name ASC`

	rows, err := persistence.QuerierFor(ctx, r.pool).Query(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Subcategory
	for rows.Next() {
		var sub domain.Subcategory
		if err := rows.Scan(&sub.ID, &sub.CategoryID, &sub.Name, &sub.Description, &sub.ResolutionHours); err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}
