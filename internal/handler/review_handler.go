package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/service"
	"github.com/noah-isme/asset-review-api/internal/utils"
)

// ReviewHandler serves the public review endpoint.
type ReviewHandler struct {
	service   service.ReviewService
	maxSizeMB int
	logger    zerolog.Logger
}

// NewReviewHandler constructs the handler. maxSizeMB is only used in the
// oversize error message.
func NewReviewHandler(service service.ReviewService, maxSizeMB int, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service:   service,
		maxSizeMB: maxSizeMB,
		logger:    logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register binds the review route. Extra handlers such as a rate limiter run first.
func (h *ReviewHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, guards...), h.review)
	router.Post("/review", handlers...)
}

func (h *ReviewHandler) review(c *fiber.Ctx) error {
	req := dto.ReviewRequest{AssetType: strings.TrimSpace(c.FormValue("assetType"))}
	if file, err := c.FormFile("file"); err == nil {
		req.File = file
	}

	logger := requestLogger(h.logger, c)
	result, err := h.service.Review(withRequestContext(c), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileRequired):
			return utils.SendPlainError(c, fiber.StatusBadRequest, "No image file provided", "")
		case errors.Is(err, service.ErrAssetTypeRequired):
			return utils.SendPlainError(c, fiber.StatusBadRequest, "Asset type is required", "")
		case errors.Is(err, service.ErrAssetTypeNotFound):
			name := service.NormalizeAssetTypeName(req.AssetType)
			return utils.SendPlainError(c, fiber.StatusBadRequest, fmt.Sprintf("Asset type %q not found", name), "")
		case errors.Is(err, service.ErrUploadTypeNotAllowed):
			return utils.SendPlainError(c, fiber.StatusBadRequest, "Invalid file type. Only JPEG, PNG, GIF, and WebP are allowed.", "")
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendPlainError(c, fiber.StatusRequestEntityTooLarge, fmt.Sprintf("File too large. Maximum size is %dMB.", h.maxSizeMB), "")
		default:
			logger.Error().Err(err).Str("asset_type", req.AssetType).Msg("review failed")
			return utils.SendPlainError(c, fiber.StatusInternalServerError, "Failed to review asset", err.Error())
		}
	}

	for _, step := range result.Degraded() {
		logger.Warn().Err(step.Err).Str("step", step.Step).Uint("submission_id", result.SubmissionID).Msg("review step degraded")
	}

	return c.Status(fiber.StatusOK).JSON(result.Response)
}
