package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/harness"
	"github.com/noah-isme/codearena-api/internal/service"
	"github.com/noah-isme/codearena-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for seeding data.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/problems", h.problems)
}

type seedProblemsRequest struct {
	Items []dto.CreateProblemRequest `json:"items"`
}

func (h *SeedHandler) problems(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload seedProblemsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	affected, err := h.service.SeedProblems(c.UserContext(), token, payload.Items)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "problems seeded", fiber.Map{"affected": affected})
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSeedDisabled):
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case errors.Is(err, service.ErrSeedUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	case isValidationError(err),
		errors.Is(err, service.ErrInvalidDifficulty),
		errors.Is(err, service.ErrInvalidProblem),
		errors.Is(err, harness.ErrMismatchedTestCases),
		errors.Is(err, harness.ErrInvalidTestValue):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid seed payload", err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("seed operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "seed operation failed")
	}
}
