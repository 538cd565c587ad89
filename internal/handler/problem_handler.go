package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/harness"
	"github.com/noah-isme/codearena-api/internal/middleware"
	"github.com/noah-isme/codearena-api/internal/service"
	"github.com/noah-isme/codearena-api/internal/utils"
)

// ProblemHandler exposes the problem catalog.
type ProblemHandler struct {
	service service.ProblemService
	logger  zerolog.Logger
}

// NewProblemHandler builds a new problem handler.
func NewProblemHandler(service service.ProblemService, logger zerolog.Logger) *ProblemHandler {
	return &ProblemHandler{
		service: service,
		logger:  logger.With().Str("component", "problem_handler").Logger(),
	}
}

// Register wires the handler routes into the router group. Creating problems is limited to admins.
func (h *ProblemHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", middleware.WithAuth(h.create, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
}

func (h *ProblemHandler) list(c *fiber.Ctx) error {
	filter := dto.ProblemFilter{
		Difficulty: c.Query("difficulty"),
		Topic:      c.Query("topic"),
		Search:     c.Query("search"),
	}
	if page, err := parseQueryInt(c, "page"); err == nil {
		filter.Page = page
	}
	if pageSize, err := parseQueryInt(c, "page_size"); err == nil {
		filter.PageSize = pageSize
	}

	problems, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, problems.Items, "problems retrieved", problems.Pagination)
}

func (h *ProblemHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	problem, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "problem retrieved", problem)
}

func (h *ProblemHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateProblemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	problem, err := h.service.Create(c.UserContext(), payload, callerFromContext(c).UserID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "problem created", problem)
}

func (h *ProblemHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request payload", err.Error())
	case errors.Is(err, service.ErrProblemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "problem not found")
	case errors.Is(err, service.ErrProblemExists):
		return utils.SendError(c, fiber.StatusConflict, "a problem with this title already exists")
	case errors.Is(err, service.ErrInvalidDifficulty):
		return utils.SendError(c, fiber.StatusBadRequest, "difficulty must be Easy, Medium or Hard")
	case errors.Is(err, harness.ErrMismatchedTestCases), errors.Is(err, harness.ErrInvalidTestValue):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid test cases", err.Error())
	case errors.Is(err, service.ErrInvalidProblem):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid problem", err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("problem request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
