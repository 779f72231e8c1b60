package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-service/internal/api/http/handlers"
	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/identity"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health             *handlers.HealthHandler
	Issues             *handlers.IssuesHandler
	Chat               *handlers.ChatHandler
	IdentityMiddleware *identity.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authed := app.Group("", cfg.IdentityMiddleware.Handle)

	issues := authed.Group("/issues")
	issues.Post("", identity.RequireRole(domain.RoleCitizen), cfg.Issues.Report)
	issues.Get("", cfg.Issues.List)
	issues.Get("/stream", cfg.Issues.Stream)
	issues.Post("/:id/status", identity.RequireRole(domain.RoleContractor, domain.RoleAdmin), cfg.Issues.Advance)
	issues.Delete("/:id", identity.RequireRole(domain.RoleAdmin), cfg.Issues.Remove)

	issues.Post("/:id/tip", identity.RequireRole(domain.RoleCitizen), cfg.Issues.SendTip)
	issues.Post("/:id/tip/skip", identity.RequireRole(domain.RoleCitizen), cfg.Issues.SkipTip)
	issues.Post("/:id/review", identity.RequireRole(domain.RoleCitizen), cfg.Issues.SubmitReview)

	issues.Post("/:id/messages", identity.RequireRole(domain.RoleAdmin, domain.RoleContractor), cfg.Chat.Post)
	issues.Get("/:id/messages", cfg.Chat.List)
	issues.Get("/:id/messages/stream", cfg.Chat.Stream)

	authed.Get("/me/stats", cfg.Issues.MyStats)
}
