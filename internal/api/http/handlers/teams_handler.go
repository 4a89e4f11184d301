package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/repository"
)

// TeamsHandler exposes read access to teams.
type TeamsHandler struct {
	teams repository.TeamRepository
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(teams repository.TeamRepository) *TeamsHandler {
	return &TeamsHandler{teams: teams}
}

// ListTeams GET /api/teams.
func (h *TeamsHandler) ListTeams(c *fiber.Ctx) error {
	teams, err := h.teams.FindAll(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, dto.TeamFromDomain(&teams[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
