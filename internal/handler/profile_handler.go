package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/middleware"
	"github.com/noah-isme/codearena-api/internal/service"
	"github.com/noah-isme/codearena-api/internal/utils"
)

// ProfileHandler exposes user profiles and submission history.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(service service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register wires the routes below /api/v2. The /me routes need an authenticated caller.
func (h *ProfileHandler) Register(router fiber.Router) {
	authenticated := middleware.AuthOptions{RequireUser: true}

	router.Get("/profile/me", middleware.WithAuth(h.me, authenticated))
	router.Get("/profile/:username", h.byUsername)
	router.Get("/submissions/me", middleware.WithAuth(h.mySubmissions, authenticated))
}

func (h *ProfileHandler) me(c *fiber.Ctx) error {
	profile, err := h.service.ForCaller(c.UserContext(), callerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *ProfileHandler) byUsername(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "username is required")
	}

	profile, err := h.service.ForUsername(c.UserContext(), username, callerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *ProfileHandler) mySubmissions(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "limit must be an integer")
	}

	submissions, err := h.service.Submissions(c.UserContext(), callerFromContext(c), limit)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *ProfileHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("profile request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
