package dto

import "github.com/hrdesk/helpdesk-service/internal/domain"

// CategoryRequest payload for category create and update.
type CategoryRequest struct {
	Name              string                `json:"name"`
	Description       string                `json:"description"`
	AutoPriority      domain.TicketPriority `json:"auto_priority"`
	ResolutionHours   int                   `json:"resolution_hours"`
	ResponsibleRoleID *int64                `json:"responsible_role_id"`
	Active            *bool                 `json:"active"`
}

// CategoryResponse is the public view of a category.
type CategoryResponse struct {
	ID                int64                 `json:"id"`
	Name              string                `json:"name"`
	Description       string                `json:"description,omitempty"`
	AutoPriority      domain.TicketPriority `json:"auto_priority"`
	ResolutionHours   int                   `json:"resolution_hours"`
	ResponsibleRoleID *int64                `json:"responsible_role_id"`
	Active            bool                  `json:"active"`
	SortOrder         int                   `json:"sort_order"`
}

// SubcategoryRequest payload.
type SubcategoryRequest struct {
	Name            string `json:"name"`
	ResolutionHours int    `json:"resolution_hours"`
}

// SubcategoryResponse is the public view of a subcategory.
type SubcategoryResponse struct {
	ID              int64  `json:"id"`
	CategoryID      int64  `json:"category_id"`
	Name            string `json:"name"`
	ResolutionHours int    `json:"resolution_hours"`
}

// RoleRequest payload.
type RoleRequest struct {
	Key         string          `json:"key"`
	DisplayName string          `json:"display_name"`
	Description string          `json:"description"`
	Kind        domain.RoleKind `json:"kind"`
}

// RoleResponse is the public view of a role.
type RoleResponse struct {
	ID          int64           `json:"id"`
	Key         string          `json:"key"`
	DisplayName string          `json:"display_name"`
	Description string          `json:"description,omitempty"`
	Kind        domain.RoleKind `json:"kind"`
	System      bool            `json:"system"`
}

// AreaRequest payload.
type AreaRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AreaResponse is the public view of an area.
type AreaResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
