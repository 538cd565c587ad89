package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/harness"
	"github.com/noah-isme/codearena-api/internal/service"
	"github.com/noah-isme/codearena-api/internal/utils"
)

// ExecutionHandler exposes the run-code endpoint.
type ExecutionHandler struct {
	service service.ExecutionService
	logger  zerolog.Logger
}

// NewExecutionHandler constructs an ExecutionHandler.
func NewExecutionHandler(service service.ExecutionService, logger zerolog.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		service: service,
		logger:  logger.With().Str("component", "execution_handler").Logger(),
	}
}

// Register wires the routes below /api/v2/run-code.
func (h *ExecutionHandler) Register(router fiber.Router) {
	router.Post("", h.execute)
}

func (h *ExecutionHandler) execute(c *fiber.Ctx) error {
	var payload dto.ExecuteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	response, err := h.service.Execute(c.UserContext(), payload, callerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "code executed", response)
}

func (h *ExecutionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request payload", err.Error())
	case errors.Is(err, harness.ErrMismatchedTestCases):
		return utils.SendError(c, fiber.StatusBadRequest, "test inputs and expected outputs must have the same length")
	case errors.Is(err, harness.ErrInvalidTestValue):
		return utils.SendError(c, fiber.StatusBadRequest, "test values must be valid JSON")
	case errors.Is(err, harness.ErrInvalidEntryPoint):
		return utils.SendError(c, fiber.StatusBadRequest, "entry point must be a valid identifier")
	case errors.Is(err, service.ErrProblemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "problem not found")
	case errors.Is(err, service.ErrExecutionUnavailable):
		requestLogger(h.logger, c).Error().Err(err).Msg("execution backend unavailable")
		return utils.SendError(c, fiber.StatusBadGateway, "execution service unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return utils.SendError(c, fiber.StatusGatewayTimeout, "execution cancelled")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to execute code")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
