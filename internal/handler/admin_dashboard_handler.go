package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/service"
	"github.com/noah-isme/asset-review-api/internal/utils"
)

// AdminDashboardHandler serves aggregated review statistics.
type AdminDashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewAdminDashboardHandler constructs the handler.
func NewAdminDashboardHandler(service service.DashboardService, logger zerolog.Logger) *AdminDashboardHandler {
	return &AdminDashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_dashboard_handler").Logger(),
	}
}

// Register binds the stats route.
func (h *AdminDashboardHandler) Register(router fiber.Router) {
	router.Get("/stats", h.stats)
}

func (h *AdminDashboardHandler) stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(withRequestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build dashboard stats")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}
