package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/service"
	"github.com/noah-isme/asset-review-api/internal/utils"
)

// AdminSettingsHandler toggles ghost mode.
type AdminSettingsHandler struct {
	service   service.SettingsService
	dashboard service.DashboardService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminSettingsHandler constructs the handler. dashboard may be nil.
func NewAdminSettingsHandler(service service.SettingsService, dashboard service.DashboardService, validate *validator.Validate, logger zerolog.Logger) *AdminSettingsHandler {
	return &AdminSettingsHandler{
		service:   service,
		dashboard: dashboard,
		validator: validate,
		logger:    logger.With().Str("component", "admin_settings_handler").Logger(),
	}
}

// Register binds settings routes.
func (h *AdminSettingsHandler) Register(router fiber.Router) {
	router.Get("/ghost-mode", h.getGhostMode)
	router.Put("/ghost-mode", h.setGhostMode)
}

func (h *AdminSettingsHandler) getGhostMode(c *fiber.Ctx) error {
	state, err := h.service.GhostMode(withRequestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to read ghost mode")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to read ghost mode")
	}
	return utils.SendSuccess(c, "ghost mode retrieved", state)
}

func (h *AdminSettingsHandler) setGhostMode(c *fiber.Ctx) error {
	var payload dto.GhostModeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "enabled is required")
	}

	ctx := withRequestContext(c)
	state, err := h.service.SetGhostMode(ctx, *payload.Enabled)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to update ghost mode")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update ghost mode")
	}

	if h.dashboard != nil {
		if err := h.dashboard.Invalidate(ctx); err != nil {
			requestLogger(h.logger, c).Warn().Err(err).Msg("failed to invalidate dashboard cache")
		}
	}

	requestLogger(h.logger, c).Info().Bool("enabled", state.Enabled).Msg("ghost mode updated")
	return utils.SendSuccess(c, "ghost mode updated", state)
}
