package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codearena-api/internal/config"
	"github.com/noah-isme/codearena-api/internal/handler"
	"github.com/noah-isme/codearena-api/internal/middleware"
	"github.com/noah-isme/codearena-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExecutionHandler   *handler.ExecutionHandler
	ProblemHandler     *handler.ProblemHandler
	LeaderboardHandler *handler.LeaderboardHandler
	ProfileHandler     *handler.ProfileHandler
	SeedHandler        *handler.SeedHandler
	// SubmissionFeedHandler serves the websocket feed below /api/v2/submissions/feed.
	SubmissionFeedHandler *handler.SubmissionFeedHandler
	// HealthProbes are reported by /api/v1/health.
	HealthProbes []handler.HealthProbe
	// JWTOptional resolves the caller when a bearer token is present. Defaults to a no-op.
	JWTOptional fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	identity := deps.JWTOptional
	if identity == nil {
		identity = func(c *fiber.Ctx) error { return c.Next() }
	}

	v2 := app.Group("/api/v2", identity)

	if deps.ExecutionHandler != nil {
		runCode := v2.Group("/run-code", middleware.RateLimit("run-code", cfg.ExecuteRateLimitPerMinute, time.Minute))
		deps.ExecutionHandler.Register(runCode)
	}

	if deps.ProblemHandler != nil {
		deps.ProblemHandler.Register(v2.Group("/problems"))
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(v2.Group("/leaderboard"))
	}

	if deps.ProfileHandler != nil {
		deps.ProfileHandler.Register(v2)
	}

	if deps.SubmissionFeedHandler != nil {
		deps.SubmissionFeedHandler.Register(v2.Group("/submissions/feed"))
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(app.Group("/api/v2/seed"))
	}
}
