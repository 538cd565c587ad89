package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codearena-api/internal/config"
	"github.com/noah-isme/codearena-api/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthProbe checks a single dependency. Check may be nil for components that
// only report presence, such as the execution backend.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// ComponentHealth is the per-dependency entry of the health payload.
type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Backend     string            `json:"execution_backend"`
	Components  []ComponentHealth `json:"components,omitempty"`
}

// HealthCheck reports service identity plus the state of every probe. Any
// failing probe turns the response into a 503 with status "degraded".
func HealthCheck(cfg config.Config, probes ...HealthProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Backend:     cfg.ExecutionBackend,
		}

		for _, probe := range probes {
			component := ComponentHealth{Name: probe.Name, Status: "ok"}
			if probe.Check != nil {
				ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
				err := probe.Check(ctx)
				cancel()
				if err != nil {
					component.Status = "down"
					component.Error = err.Error()
					payload.Status = "degraded"
				}
			}
			payload.Components = append(payload.Components, component)
		}

		if payload.Status != "ok" {
			return utils.SendSuccessWithStatus(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
