package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/dto"
	"github.com/noah-isme/asset-review-api/internal/service"
	"github.com/noah-isme/asset-review-api/internal/utils"
)

// AuthHandler issues admin tokens.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds auth routes. Extra handlers such as a rate limiter run first.
func (h *AuthHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, guards...), h.login)
	router.Post("/login", handlers...)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.Password == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "password is required")
	}

	token, err := h.service.Login(withRequestContext(c), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			requestLogger(h.logger, c).Warn().Str("ip", c.IP()).Msg("admin login rejected")
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to issue admin token")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to sign in")
		}
	}

	return utils.SendSuccess(c, "login successful", token)
}
