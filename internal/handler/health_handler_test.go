package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codearena-api/internal/config"
	"github.com/noah-isme/codearena-api/internal/handler"
)

type healthEnvelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    handler.HealthResponse `json:"data"`
}

func healthRequest(t *testing.T, probes ...handler.HealthProbe) (int, healthEnvelope) {
	t.Helper()
	cfg := config.Config{AppName: "CodeArena API", AppEnv: "test", ExecutionBackend: "judge0"}

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, probes...))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload healthEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestHealthCheck(t *testing.T) {
	status, payload := healthRequest(t)

	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, payload.Success)
	assert.Equal(t, "ok", payload.Data.Status)
	assert.Equal(t, "CodeArena API", payload.Data.Service)
	assert.Equal(t, "test", payload.Data.Environment)
	assert.Equal(t, "judge0", payload.Data.Backend)
	assert.Empty(t, payload.Data.Components)
	assert.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
}

func TestHealthCheckReportsComponents(t *testing.T) {
	status, payload := healthRequest(t,
		handler.HealthProbe{Name: "database", Check: func(context.Context) error { return nil }},
		handler.HealthProbe{Name: "execution"},
	)

	assert.Equal(t, fiber.StatusOK, status)
	require.Len(t, payload.Data.Components, 2)
	assert.Equal(t, "database", payload.Data.Components[0].Name)
	assert.Equal(t, "ok", payload.Data.Components[0].Status)
	assert.Equal(t, "ok", payload.Data.Components[1].Status)
}

func TestHealthCheckDegradedOnFailingProbe(t *testing.T) {
	status, payload := healthRequest(t,
		handler.HealthProbe{Name: "database", Check: func(context.Context) error { return nil }},
		handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			if !hasDeadline {
				return errors.New("missing deadline")
			}
			return errors.New("connection refused")
		}},
	)

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", payload.Data.Status)
	assert.Equal(t, "service degraded", payload.Message)
	require.Len(t, payload.Data.Components, 2)
	assert.Equal(t, "down", payload.Data.Components[1].Status)
	assert.Equal(t, "connection refused", payload.Data.Components[1].Error)
}
