package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/repository"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// CatalogService manages the admin-owned routing catalog: categories,
// subcategories, roles and areas. Changes here steer future assignment
// decisions only; existing tickets keep their derived fields.
type CatalogService struct {
	categories repository.CategoryRepository
	roles      repository.RoleRepository
	areas      repository.AreaRepository
}

// NewCatalogService creates the service.
func NewCatalogService(categories repository.CategoryRepository, roles repository.RoleRepository, areas repository.AreaRepository) *CatalogService {
	return &CatalogService{categories: categories, roles: roles, areas: areas}
}

// CategoryInput describes a category create or update payload.
type CategoryInput struct {
	Name              string
	Description       string
	AutoPriority      domain.TicketPriority
	ResolutionHours   int
	ResponsibleRoleID *int64
	Active            *bool
}

// CreateCategory validates and stores a new category.
func (s *CatalogService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	if err := s.validateCategory(ctx, &input); err != nil {
		return nil, err
	}
	category := &domain.Category{
		Name:              strings.TrimSpace(input.Name),
		Description:       strings.TrimSpace(input.Description),
		AutoPriority:      input.AutoPriority,
		ResolutionHours:   input.ResolutionHours,
		ResponsibleRoleID: input.ResponsibleRoleID,
		Active:            true,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// UpdateCategory applies a category change.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.validateCategory(ctx, &input); err != nil {
		return nil, err
	}

	category.Name = strings.TrimSpace(input.Name)
	category.Description = strings.TrimSpace(input.Description)
	category.AutoPriority = input.AutoPriority
	category.ResolutionHours = input.ResolutionHours
	category.ResponsibleRoleID = input.ResponsibleRoleID
	if input.Active != nil {
		category.Active = *input.Active
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// ListCategories returns the catalog, optionally only active entries.
func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// CreateSubcategory stores a subcategory under an existing category. A
// zero resolution-hours override inherits the category default.
func (s *CatalogService) CreateSubcategory(ctx context.Context, categoryID int64, name string, resolutionHours int) (*domain.Subcategory, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("subcategory name is required", nil)
	}
	if resolutionHours < 0 {
		return nil, apperrors.NewValidationError("resolution hours cannot be negative", nil)
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
		}
		return nil, apperrors.MapError(err)
	}

	sub := &domain.Subcategory{
		CategoryID:      categoryID,
		Name:            strings.TrimSpace(name),
		ResolutionHours: resolutionHours,
	}
	if err := s.categories.CreateSubcategory(ctx, sub); err != nil {
		return nil, apperrors.MapError(err)
	}
	return sub, nil
}

// ListSubcategories returns the subcategories of a category.
func (s *CatalogService) ListSubcategories(ctx context.Context, categoryID int64) ([]domain.Subcategory, error) {
	subs, err := s.categories.ListSubcategories(ctx, categoryID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return subs, nil
}

// CreateRole stores an admin-defined role. System roles are seeded by
// migration and cannot be created here.
func (s *CatalogService) CreateRole(ctx context.Context, key, displayName, description string, kind domain.RoleKind) (*domain.Role, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || strings.TrimSpace(displayName) == "" {
		return nil, apperrors.NewValidationError("role key and display name are required", nil)
	}
	switch kind {
	case domain.RoleKindAdmin, domain.RoleKindAgent, domain.RoleKindRequester:
	default:
		return nil, apperrors.NewValidationError("unknown role kind", map[string]any{"kind": kind})
	}

	if _, err := s.roles.GetByKey(ctx, key); err == nil {
		return nil, apperrors.NewConflict("role key already exists", map[string]any{"key": key})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	role := &domain.Role{
		Key:         key,
		DisplayName: strings.TrimSpace(displayName),
		Description: strings.TrimSpace(description),
		BaseKind:    kind,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, apperrors.MapError(err)
	}
	return role, nil
}

// ListRoles returns all roles.
func (s *CatalogService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return roles, nil
}

// CreateArea stores an organizational area.
func (s *CatalogService) CreateArea(ctx context.Context, name, description string) (*domain.Area, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("area name is required", nil)
	}
	area := &domain.Area{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if err := s.areas.Create(ctx, area); err != nil {
		return nil, apperrors.MapError(err)
	}
	return area, nil
}

// ListAreas returns all areas.
func (s *CatalogService) ListAreas(ctx context.Context) ([]domain.Area, error) {
	areas, err := s.areas.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return areas, nil
}

func (s *CatalogService) validateCategory(ctx context.Context, input *CategoryInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("category name is required", nil)
	}
	switch input.AutoPriority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh:
	default:
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.AutoPriority})
	}
	if input.ResolutionHours <= 0 {
		return apperrors.NewValidationError("resolution hours must be positive", nil)
	}
	if input.ResponsibleRoleID != nil {
		if _, err := s.roles.GetByID(ctx, *input.ResponsibleRoleID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("role", map[string]any{"role_id": *input.ResponsibleRoleID})
			}
			return apperrors.MapError(err)
		}
	}
	return nil
}
