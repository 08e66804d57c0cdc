package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/middleware"
	"github.com/noah-isme/asset-review-api/internal/service"
	"github.com/noah-isme/asset-review-api/internal/utils"
)

// AdminSubmissionHandler exposes the submission log and its live feed.
type AdminSubmissionHandler struct {
	service service.SubmissionService
	feed    service.SubmissionFeed
	logger  zerolog.Logger
}

// NewAdminSubmissionHandler constructs the handler. feed may be nil, which
// disables the stream route.
func NewAdminSubmissionHandler(service service.SubmissionService, feed service.SubmissionFeed, logger zerolog.Logger) *AdminSubmissionHandler {
	return &AdminSubmissionHandler{
		service: service,
		feed:    feed,
		logger:  logger.With().Str("component", "admin_submission_handler").Logger(),
	}
}

// Register attaches submission routes. The stream route is bound before /:id.
func (h *AdminSubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	if h.feed != nil {
		router.Use("/stream", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		router.Get("/stream", websocket.New(h.stream))
	}
	router.Get("/:id", h.get)
}

func (h *AdminSubmissionHandler) list(c *fiber.Ctx) error {
	var req dto.SubmissionListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.List(withRequestContext(c), req)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid filters", err.Error())
		case errors.Is(err, service.ErrInvalidDateFilter):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to list submissions")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to list submissions")
		}
	}

	return utils.OK(c, response.Items, "submissions retrieved", response.Pagination)
}

func (h *AdminSubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	submission, err := h.service.Get(withRequestContext(c), id)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("submission_id", id).Msg("failed to fetch submission")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch submission")
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *AdminSubmissionHandler) stream(conn *websocket.Conn) {
	correlation, _ := conn.Locals(middleware.CorrelationLocal).(string)
	h.logger.Info().Str("correlation_id", correlation).Msg("submission stream connected")
	h.feed.ServeConnection(conn, correlation)
	h.logger.Info().Str("correlation_id", correlation).Msg("submission stream disconnected")
}
