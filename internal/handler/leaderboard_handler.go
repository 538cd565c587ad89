package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/service"
	"github.com/noah-isme/codearena-api/internal/utils"
)

const defaultLeaderboardLimit = 100

// LeaderboardHandler serves the global ranking.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler constructs a LeaderboardHandler.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register wires the routes below /api/v2/leaderboard.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("", h.global)
}

func (h *LeaderboardHandler) global(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "limit must be a positive integer")
	}
	if limit == 0 {
		limit = defaultLeaderboardLimit
	}

	leaderboard, err := h.service.Global(c.UserContext(), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build leaderboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to retrieve leaderboard")
	}

	return utils.SendSuccess(c, "leaderboard retrieved", leaderboard)
}
