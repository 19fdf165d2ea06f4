package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hrdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/hrdesk/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	Catalog        *handlers.CatalogHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Accounts.Register)
	authGroup.Post("/login", cfg.Accounts.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Accounts.Me)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("/on-behalf", auth.RequireAgent(), cfg.Tickets.CreateTicketFor)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.EditTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/state", auth.RequireAgent(), cfg.Tickets.ChangeState)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", cfg.Tickets.ReopenTicket)
	tickets.Post("/:id/reassign", auth.RequireAgent(), cfg.Assignments.Propose)
	tickets.Post("/:id/reassign/accept", auth.RequireAgent(), cfg.Assignments.Accept)
	tickets.Post("/:id/reassign/reject", auth.RequireAgent(), cfg.Assignments.Reject)

	assignments := app.Group("/assignments", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	assignments.Get("/inbox", cfg.Assignments.Inbox)

	app.Get("/categories", cfg.AuthMiddleware.Handle, cfg.Catalog.ListCategories)
	app.Get("/categories/:id/subcategories", cfg.AuthMiddleware.Handle, cfg.Catalog.ListSubcategories)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Post("/accounts", cfg.Accounts.CreateAccount)
	admin.Post("/categories", cfg.Catalog.CreateCategory)
	admin.Put("/categories/:id", cfg.Catalog.UpdateCategory)
	admin.Post("/categories/:id/subcategories", cfg.Catalog.CreateSubcategory)
	admin.Get("/roles", cfg.Catalog.ListRoles)
	admin.Post("/roles", cfg.Catalog.CreateRole)
	admin.Get("/areas", cfg.Catalog.ListAreas)
	admin.Post("/areas", cfg.Catalog.CreateArea)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle)
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
