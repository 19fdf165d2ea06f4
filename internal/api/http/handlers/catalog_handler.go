package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/hrdesk/helpdesk-service/internal/api/dto"
	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/service"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// CatalogHandler manages the admin routing catalog.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: catalogService}
}

// ListCategories GET /categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active", false)
	categories, err := h.service.ListCategories(c.UserContext(), activeOnly)
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /admin/categories.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.service.CreateCategory(c.UserContext(), categoryInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// UpdateCategory PUT /admin/categories/:id.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.service.UpdateCategory(c.UserContext(), id, categoryInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// ListSubcategories GET /categories/:id/subcategories.
func (h *CatalogHandler) ListSubcategories(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	subs, err := h.service.ListSubcategories(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.SubcategoryResponse, 0, len(subs))
	for i := range subs {
		items = append(items, subcategoryResponse(&subs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateSubcategory POST /admin/categories/:id/subcategories.
func (h *CatalogHandler) CreateSubcategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.SubcategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sub, err := h.service.CreateSubcategory(c.UserContext(), id, req.Name, req.ResolutionHours)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": subcategoryResponse(sub)})
}

// ListRoles GET /admin/roles.
func (h *CatalogHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.service.ListRoles(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		items = append(items, roleResponse(&roles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateRole POST /admin/roles.
func (h *CatalogHandler) CreateRole(c *fiber.Ctx) error {
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := h.service.CreateRole(c.UserContext(), req.Key, req.DisplayName, req.Description, req.Kind)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": roleResponse(role)})
}

// ListAreas GET /admin/areas.
func (h *CatalogHandler) ListAreas(c *fiber.Ctx) error {
	areas, err := h.service.ListAreas(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AreaResponse, 0, len(areas))
	for i := range areas {
		items = append(items, dto.AreaResponse{ID: areas[i].ID, Name: areas[i].Name, Description: areas[i].Description})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateArea POST /admin/areas.
func (h *CatalogHandler) CreateArea(c *fiber.Ctx) error {
	var req dto.AreaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	area, err := h.service.CreateArea(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AreaResponse{
		ID: area.ID, Name: area.Name, Description: area.Description,
	}})
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func categoryInput(req dto.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:              req.Name,
		Description:       req.Description,
		AutoPriority:      req.AutoPriority,
		ResolutionHours:   req.ResolutionHours,
		ResponsibleRoleID: req.ResponsibleRoleID,
		Active:            req.Active,
	}
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:                category.ID,
		Name:              category.Name,
		Description:       category.Description,
		AutoPriority:      category.AutoPriority,
		ResolutionHours:   category.ResolutionHours,
		ResponsibleRoleID: category.ResponsibleRoleID,
		Active:            category.Active,
		SortOrder:         category.SortOrder,
	}
}

func subcategoryResponse(sub *domain.Subcategory) dto.SubcategoryResponse {
	return dto.SubcategoryResponse{
		ID:              sub.ID,
		CategoryID:      sub.CategoryID,
		Name:            sub.Name,
		ResolutionHours: sub.ResolutionHours,
	}
}

func roleResponse(role *domain.Role) dto.RoleResponse {
	return dto.RoleResponse{
		ID:          role.ID,
		Key:         role.Key,
		DisplayName: role.DisplayName,
		Description: role.Description,
		Kind:        role.BaseKind,
		System:      role.System,
	}
}
