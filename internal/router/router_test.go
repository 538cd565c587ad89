package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codearena-api/internal/config"
	"github.com/noah-isme/codearena-api/internal/observability"
	"github.com/noah-isme/codearena-api/internal/router"
)

func TestRegisterHealthAndMetrics(t *testing.T) {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "CodeArena Test", AppEnv: "test"}, router.Dependencies{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "CodeArena Test", resp.Header.Get("X-Application"))

	observability.SubmissionsTotal().WithLabelValues("Accepted").Inc()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "codearena_submissions_total")
}

func TestRegisterSkipsMissingHandlers(t *testing.T) {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "CodeArena Test"}, router.Dependencies{})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/run-code", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
