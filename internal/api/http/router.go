package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
)

// RouteConfig bundles everything the router needs to wire endpoints.
type RouteConfig struct {
	Auth     *auth.Middleware
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	Guest    *handlers.GuestTicketsHandler
	Admin    *handlers.AdminTicketsHandler
	Registry *prometheus.Registry
}

// RegisterRoutes declares the HTTP surface of the service.
func RegisterRoutes(app *fiber.App, rc RouteConfig) {
	app.Get("/health/live", rc.Health.Live)
	app.Get("/health/ready", rc.Health.Ready)

	if rc.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(rc.Registry, promhttp.HandlerOpts{})))
	}

	tickets := app.Group("/tickets", rc.Auth.Handle, auth.RequireRole(domain.RoleUser))
	tickets.Post("/", rc.Tickets.CreateTicket)
	tickets.Get("/", rc.Tickets.ListTickets)
	tickets.Get("/:id", rc.Tickets.GetTicket)
	tickets.Post("/:id/messages", rc.Tickets.Reply)

	guest := app.Group("/guest/tickets")
	guest.Post("/", rc.Guest.CreateTicket)
	guest.Get("/:id", rc.Guest.GetTicket)
	guest.Post("/:id/messages", rc.Guest.Reply)

	admin := app.Group("/admin", rc.Auth.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/tickets", rc.Admin.ListTickets)
	// Static segment must be declared before the :id routes or fiber
	// would treat "unread-counts" as a ticket id.
	admin.Get("/tickets/unread-counts", rc.Admin.UnreadCounts)
	admin.Get("/tickets/:id", rc.Admin.GetTicket)
	admin.Post("/tickets/:id/messages", rc.Admin.Reply)
	admin.Post("/tickets/:id/read", rc.Admin.MarkRead)
	admin.Post("/tickets/:id/close", rc.Admin.ForceClose)
	admin.Patch("/messages/:id", rc.Admin.EditMessage)
	admin.Delete("/messages/:id", rc.Admin.DeleteMessage)
}
