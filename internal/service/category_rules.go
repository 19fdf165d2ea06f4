package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/repository"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// Defaults applied when a ticket has no category attached.
const (
	defaultPriority        = domain.TicketPriorityMedium
	defaultResolutionHours = 24
)

// CategoryRules is the read-side lookup for category-driven ticket fields:
// automatic priority, estimated resolution hours and the responsible role.
type CategoryRules struct {
	categories repository.CategoryRepository
}

// NewCategoryRules creates the lookup.
func NewCategoryRules(categories repository.CategoryRepository) *CategoryRules {
	return &CategoryRules{categories: categories}
}

// PriorityFor returns the automatic priority of the category.
func (r *CategoryRules) PriorityFor(ctx context.Context, categoryID int64) (domain.TicketPriority, error) {
	category, err := r.category(ctx, categoryID)
	if err != nil {
		return "", err
	}
	return category.AutoPriority, nil
}

// ResolutionHoursFor returns the effective resolution window. A subcategory
// override of zero falls back to the category default; high priority caps
// the window at HighPriorityMaxHours.
func (r *CategoryRules) ResolutionHoursFor(ctx context.Context, categoryID int64, subcategoryID *int64) (int, error) {
	category, err := r.category(ctx, categoryID)
	if err != nil {
		return 0, err
	}

	hours := category.ResolutionHours
	if subcategoryID != nil {
		sub, err := r.subcategory(ctx, *subcategoryID)
		if err != nil {
			return 0, err
		}
		if sub.CategoryID != categoryID {
			return 0, apperrors.NewValidationError("subcategory does not belong to category", map[string]any{
				"category_id":    categoryID,
				"subcategory_id": *subcategoryID,
			})
		}
		hours = sub.EffectiveResolutionHours(category)
	}

	if category.AutoPriority == domain.TicketPriorityHigh && hours > domain.HighPriorityMaxHours {
		hours = domain.HighPriorityMaxHours
	}
	return hours, nil
}

// ResponsibleRoleFor returns the role wired to the category, or nil when
// any agent may serve it.
func (r *CategoryRules) ResponsibleRoleFor(ctx context.Context, categoryID int64) (*int64, error) {
	category, err := r.category(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return category.ResponsibleRoleID, nil
}

// DeriveSLA resolves priority and resolution hours for a ticket payload.
// Tickets without a category get the defaults.
func (r *CategoryRules) DeriveSLA(ctx context.Context, categoryID, subcategoryID *int64) (domain.TicketPriority, int, error) {
	if categoryID == nil {
		return defaultPriority, defaultResolutionHours, nil
	}
	priority, err := r.PriorityFor(ctx, *categoryID)
	if err != nil {
		return "", 0, err
	}
	hours, err := r.ResolutionHoursFor(ctx, *categoryID, subcategoryID)
	if err != nil {
		return "", 0, err
	}
	return priority, hours, nil
}

func (r *CategoryRules) category(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := r.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

func (r *CategoryRules) subcategory(ctx context.Context, id int64) (*domain.Subcategory, error) {
	sub, err := r.categories.GetSubcategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("subcategory", map[string]any{"subcategory_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return sub, nil
}
