package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/service"
	"github.com/noah-isme/asset-review-api/internal/utils"
)

// AssetTypeHandler lists the asset types submitters can pick from.
type AssetTypeHandler struct {
	service service.AssetTypeService
	logger  zerolog.Logger
}

// NewAssetTypeHandler constructs the public asset type handler.
func NewAssetTypeHandler(service service.AssetTypeService, logger zerolog.Logger) *AssetTypeHandler {
	return &AssetTypeHandler{
		service: service,
		logger:  logger.With().Str("component", "asset_type_handler").Logger(),
	}
}

// Register binds public asset type routes.
func (h *AssetTypeHandler) Register(router fiber.Router) {
	router.Get("/asset-types", h.list)
}

func (h *AssetTypeHandler) list(c *fiber.Ctx) error {
	items, err := h.service.ListPublic(withRequestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list asset types")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list asset types")
	}
	return utils.SendSuccess(c, "asset types retrieved", items)
}
