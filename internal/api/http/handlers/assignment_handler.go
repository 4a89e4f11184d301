package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// AssignmentHandler exposes the triage pipeline over HTTP.
type AssignmentHandler struct {
	triage *service.TriageService
	batch  *service.BatchTriageService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(triage *service.TriageService, batch *service.BatchTriageService) *AssignmentHandler {
	return &AssignmentHandler{triage: triage, batch: batch}
}

// Assign POST /api/assignment/assign/:queryId runs one triage pass.
func (h *AssignmentHandler) Assign(c *fiber.Ctx) error {
	result, err := h.triage.ProcessQuery(c.UserContext(), c.Params("queryId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TriageFromResult(result)})
}

// Reassign POST /api/assignment/reassign/:queryId re-runs triage regardless
// of the current assignment. Same pipeline as Assign; selection converges on
// unchanged state.
func (h *AssignmentHandler) Reassign(c *fiber.Ctx) error {
	result, err := h.triage.ProcessQuery(c.UserContext(), c.Params("queryId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TriageFromResult(result)})
}

// AssignAll POST /api/assignment/assign-all triages every unassigned query.
func (h *AssignmentHandler) AssignAll(c *fiber.Ctx) error {
	result, err := h.batch.AssignAllUnassigned(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// AssignByFilter POST /api/assignment/assign-by-filter triages queries
// matching the request filter.
func (h *AssignmentHandler) AssignByFilter(c *fiber.Ctx) error {
	var req dto.BatchFilterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status != "" && !req.Status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": req.Priority})
	}
	if req.Channel != "" && !req.Channel.Valid() {
		return apperrors.NewValidationError("unknown channel", map[string]any{"channel": req.Channel})
	}

	result, err := h.batch.AssignByFilter(c.UserContext(), req.ToFilter())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Stats GET /api/assignment/stats summarizes assignment state.
func (h *AssignmentHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.batch.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
