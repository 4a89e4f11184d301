package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Queries    *handlers.QueriesHandler
	Assignment *handlers.AssignmentHandler
	Teams      *handlers.TeamsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	queries := api.Group("/queries")
	queries.Post("/", cfg.Queries.CreateQuery)
	queries.Get("/", cfg.Queries.ListQueries)
	queries.Get("/:id", cfg.Queries.GetQuery)
	queries.Patch("/:id/status", cfg.Queries.UpdateStatus)
	queries.Get("/:id/activities", cfg.Queries.ListActivities)

	assignment := api.Group("/assignment")
	assignment.Post("/assign/:queryId", cfg.Assignment.Assign)
	assignment.Post("/reassign/:queryId", cfg.Assignment.Reassign)
	assignment.Post("/assign-all", cfg.Assignment.AssignAll)
	assignment.Post("/assign-by-filter", cfg.Assignment.AssignByFilter)
	assignment.Get("/stats", cfg.Assignment.Stats)

	api.Get("/teams", cfg.Teams.ListTeams)
}
