package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codearena-api/internal/middleware"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func identityApp(guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/", guard, func(c *fiber.Ctx) error {
		userID, _ := c.Locals(middleware.LocalUserID).(string)
		username, _ := c.Locals(middleware.LocalUsername).(string)
		role, _ := c.Locals(middleware.LocalUserRole).(string)
		return c.SendString(userID + "|" + username + "|" + role)
	})
	return app
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestJWTProtectedBindsIdentity(t *testing.T) {
	app := identityApp(middleware.JWTProtected(testSecret))
	token := signToken(t, jwt.MapClaims{
		"sub":      "4b6f6e6e",
		"username": "ada_user",
		"role":     "Admin",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	resp := performWith(t, app, requestWithToken(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "4b6f6e6e|ada_user|admin", readBody(t, resp))
}

func TestJWTProtectedAcceptsNumericSubject(t *testing.T) {
	app := identityApp(middleware.JWTProtected(testSecret))
	token := signToken(t, jwt.MapClaims{"user_id": 42, "roles": []string{"member"}})

	resp := performWith(t, app, requestWithToken(token))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "42||member", readBody(t, resp))
}

func TestJWTProtectedRejectsMissingAndInvalidTokens(t *testing.T) {
	app := identityApp(middleware.JWTProtected(testSecret))

	resp := performWith(t, app, requestWithToken(""))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = performWith(t, app, requestWithToken("not-a-jwt"))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	expired := signToken(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	resp = performWith(t, app, requestWithToken(expired))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	noSubject := signToken(t, jwt.MapClaims{"role": "admin"})
	resp = performWith(t, app, requestWithToken(noSubject))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTOptionalAllowsAnonymous(t *testing.T) {
	app := identityApp(middleware.JWTOptional(testSecret))

	resp := performWith(t, app, requestWithToken(""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "||", readBody(t, resp))

	resp = performWith(t, app, requestWithToken(signToken(t, jwt.MapClaims{"sub": "u9"})))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "u9||", readBody(t, resp))

	resp = performWith(t, app, requestWithToken("garbage"))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCorrelationIDEchoesOrGenerates(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(middleware.CorrelationIDFromContext(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.HeaderCorrelationID, "abc-123")
	resp := performWith(t, app, req)
	require.Equal(t, "abc-123", resp.Header.Get(middleware.HeaderCorrelationID))
	require.Equal(t, "abc-123", readBody(t, resp))

	resp = perform(t, app)
	require.NotEmpty(t, resp.Header.Get(middleware.HeaderCorrelationID))
}

func TestRateLimitPerCaller(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.RateLimit("run", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	require.Equal(t, fiber.StatusOK, perform(t, app).StatusCode)
	require.Equal(t, fiber.StatusOK, perform(t, app).StatusCode)
	require.Equal(t, fiber.StatusTooManyRequests, perform(t, app).StatusCode)
}
