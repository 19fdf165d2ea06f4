package domain

// Category carries the assignment rules tickets inherit: an automatic
// priority, a default resolution window and the role allowed to serve it.
// A nil ResponsibleRoleID means no agent pool is wired to the category yet.
type Category struct {
	ID                int64
	Name              string
	Description       string
	Active            bool
	SortOrder         int
	AutoPriority      TicketPriority
	ResolutionHours   int
	ResponsibleRoleID *int64
}

// Subcategory refines a category. A zero ResolutionHours inherits the
// parent category's window.
type Subcategory struct {
	ID              int64
	CategoryID      int64
	Name            string
	Description     string
	ResolutionHours int
}

// EffectiveResolutionHours resolves the subcategory override against the
// parent category default.
func (s *Subcategory) EffectiveResolutionHours(parent *Category) int {
	if s.ResolutionHours > 0 {
		return s.ResolutionHours
	}
	return parent.ResolutionHours
}
