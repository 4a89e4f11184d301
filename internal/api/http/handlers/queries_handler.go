package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// QueriesHandler manages customer query endpoints.
type QueriesHandler struct {
	service *service.QueryService
}

// NewQueriesHandler constructs handler.
func NewQueriesHandler(queryService *service.QueryService) *QueriesHandler {
	return &QueriesHandler{service: queryService}
}

// CreateQuery POST /api/queries.
func (h *QueriesHandler) CreateQuery(c *fiber.Ctx) error {
	var req dto.CreateQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Channel == "" || strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("channel, message required", nil)
	}
	if !req.Channel.Valid() {
		return apperrors.NewValidationError("unknown channel", map[string]any{"channel": req.Channel})
	}

	input := service.QueryCreateInput{
		Channel:       req.Channel,
		Subject:       req.Subject,
		Message:       req.Message,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Tags:          req.Tags,
	}
	query, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.QueryFromDomain(query)})
}

// ListQueries GET /api/queries.
func (h *QueriesHandler) ListQueries(c *fiber.Ctx) error {
	queries, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.QueryResponse, 0, len(queries))
	for i := range queries {
		items = append(items, dto.QueryFromDomain(&queries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetQuery GET /api/queries/:id.
func (h *QueriesHandler) GetQuery(c *fiber.Ctx) error {
	query, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QueryFromDomain(query)})
}

// UpdateStatus PATCH /api/queries/:id/status.
func (h *QueriesHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	query, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, req.ActorID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QueryFromDomain(query)})
}

// ListActivities GET /api/queries/:id/activities.
func (h *QueriesHandler) ListActivities(c *fiber.Ctx) error {
	activities, err := h.service.ListActivities(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		items = append(items, dto.ActivityFromDomain(&activities[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
