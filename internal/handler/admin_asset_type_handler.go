package handler

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/service"
	"github.com/noah-isme/asset-review-api/internal/utils"
)

// AdminAssetTypeHandler manages guidelines and reference images.
type AdminAssetTypeHandler struct {
	service   service.AssetTypeService
	maxSizeMB int
	logger    zerolog.Logger
}

// NewAdminAssetTypeHandler constructs the handler.
func NewAdminAssetTypeHandler(service service.AssetTypeService, maxSizeMB int, logger zerolog.Logger) *AdminAssetTypeHandler {
	return &AdminAssetTypeHandler{
		service:   service,
		maxSizeMB: maxSizeMB,
		logger:    logger.With().Str("component", "admin_asset_type_handler").Logger(),
	}
}

// Register attaches asset type admin routes to the router group.
func (h *AdminAssetTypeHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:name", h.get)
	router.Put("/:name", h.update)
	router.Delete("/:name", h.delete)
	router.Post("/:name/reference-images", h.addReference)
	router.Delete("/:name/reference-images/:fileName", h.removeReference)
}

func (h *AdminAssetTypeHandler) list(c *fiber.Ctx) error {
	items, err := h.service.List(withRequestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list asset types")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list asset types")
	}
	return utils.SendSuccess(c, "asset types retrieved", items)
}

func (h *AdminAssetTypeHandler) get(c *fiber.Ctx) error {
	item, err := h.service.Get(withRequestContext(c), c.Params("name"))
	if err != nil {
		return h.fail(c, err, "failed to fetch asset type")
	}
	return utils.SendSuccess(c, "asset type retrieved", item)
}

func (h *AdminAssetTypeHandler) create(c *fiber.Ctx) error {
	var payload dto.AssetTypeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.Create(withRequestContext(c), payload)
	if err != nil {
		return h.fail(c, err, "failed to create asset type")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "asset type created", item)
}

func (h *AdminAssetTypeHandler) update(c *fiber.Ctx) error {
	var payload dto.AssetTypeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.Update(withRequestContext(c), c.Params("name"), payload)
	if err != nil {
		return h.fail(c, err, "failed to update asset type")
	}
	return utils.SendSuccess(c, "asset type updated", item)
}

func (h *AdminAssetTypeHandler) delete(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := h.service.Delete(withRequestContext(c), name); err != nil {
		return h.fail(c, err, "failed to delete asset type")
	}
	return utils.SendSuccess(c, "asset type deleted", fiber.Map{"name": service.NormalizeAssetTypeName(name)})
}

func (h *AdminAssetTypeHandler) addReference(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	item, err := h.service.AddReferenceImage(withRequestContext(c), c.Params("name"), file)
	if err != nil {
		return h.fail(c, err, "failed to add reference image")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reference image added", item)
}

func (h *AdminAssetTypeHandler) removeReference(c *fiber.Ctx) error {
	fileName, err := url.PathUnescape(c.Params("fileName"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid file name")
	}

	item, err := h.service.RemoveReferenceImage(withRequestContext(c), c.Params("name"), fileName)
	if err != nil {
		return h.fail(c, err, "failed to remove reference image")
	}
	return utils.SendSuccess(c, "reference image removed", item)
}

func (h *AdminAssetTypeHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, service.ErrAssetTypeRequired), errors.Is(err, service.ErrInvalidAssetTypeName):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFileRequired), errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %dMB", h.maxSizeMB))
	case errors.Is(err, service.ErrAssetTypeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "asset type not found")
	case errors.Is(err, service.ErrReferenceImageNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "reference image not found")
	case errors.Is(err, service.ErrAssetTypeExists):
		return utils.SendError(c, fiber.StatusConflict, "asset type already exists")
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("asset_type", c.Params("name")).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
