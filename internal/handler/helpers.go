package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/middleware"
	"github.com/noah-isme/codearena-api/internal/service"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(value), nil
}

func callerFromContext(c *fiber.Ctx) service.Caller {
	caller := service.Caller{}
	if v, ok := c.Locals(middleware.LocalUserID).(string); ok {
		caller.UserID = strings.TrimSpace(v)
	}
	if v, ok := c.Locals(middleware.LocalUsername).(string); ok {
		caller.Username = strings.TrimSpace(v)
	}
	if v, ok := c.Locals(middleware.LocalUserRole).(string); ok {
		caller.Role = strings.TrimSpace(v)
	}
	return caller
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
