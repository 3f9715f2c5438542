package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/internal/utils"
)

// ActivityHandler exposes the audit trail to administrators.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", middleware.WithAuth(h.list, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	req := dto.ActivityListRequest{
		Page:       c.QueryInt("page", 1),
		PageSize:   c.QueryInt("page_size", 25),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}

	actorID, err := parseQueryUint(c, "actor_id")
	if err != nil {
		return badRequest(c, "invalid actor id")
	}
	if actorID != nil {
		req.ActorID = *actorID
	}

	entityID, err := parseQueryUint(c, "entity_id")
	if err != nil {
		return badRequest(c, "invalid entity id")
	}
	if entityID != nil {
		req.EntityID = *entityID
	}

	response, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}
