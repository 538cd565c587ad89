package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codearena-api/internal/config"
	"github.com/noah-isme/codearena-api/internal/handler"
	"github.com/noah-isme/codearena-api/internal/middleware"
	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/repository"
	"github.com/noah-isme/codearena-api/internal/router"
	"github.com/noah-isme/codearena-api/internal/sandbox"
	"github.com/noah-isme/codearena-api/internal/service"
)

const testJWTSecret = "handler-secret"

type stubRunner struct {
	mu       sync.Mutex
	outcome  sandbox.Outcome
	err      error
	programs []string
}

func (s *stubRunner) Name() string { return "stub" }

func (s *stubRunner) Run(_ context.Context, program string) (sandbox.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs = append(s.programs, program)
	return s.outcome, s.err
}

type arenaFixture struct {
	app    *fiber.App
	db     *gorm.DB
	runner *stubRunner
}

func setupArenaApp(t *testing.T) arenaFixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Problem{}, &models.Submission{}, &models.UserProgress{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	runner := &stubRunner{}

	problems := repository.NewProblemRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	progress := repository.NewProgressRepository(db)
	users := repository.NewUserRepository(db)

	leaderboard := service.NewLeaderboardService(progress, nil, time.Minute, logger)
	recorder := service.NewSubmissionRecorder(submissions, progress, users, leaderboard, nil, logger)
	execution, err := service.NewExecutionService(runner, problems, recorder, validate, logger)
	require.NoError(t, err)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: testJWTSecret, ExecuteRateLimitPerMinute: 100}, router.Dependencies{
		ExecutionHandler:   handler.NewExecutionHandler(execution, logger),
		ProblemHandler:     handler.NewProblemHandler(service.NewProblemService(problems, validate, logger), logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(leaderboard, logger),
		ProfileHandler:     handler.NewProfileHandler(service.NewProfileService(users, submissions, progress, logger), logger),
		JWTOptional:        middleware.JWTOptional(testJWTSecret),
	})

	return arenaFixture{app: app, db: db, runner: runner}
}

func seedProblem(t *testing.T, db *gorm.DB, title, difficulty string) models.Problem {
	t.Helper()
	problem := models.Problem{
		Title:       title,
		Description: title,
		Difficulty:  difficulty,
		Inputs:      []byte(`[[2,3],[1,4]]`),
		Outputs:     []byte(`[5,5]`),
	}
	require.NoError(t, db.Create(&problem).Error)
	return problem
}

func bearer(t *testing.T, userID, username, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

const acceptedStdout = `[{"input":[2,3],"user_out":5,"ref_out":5,"is_correct":true},{"input":[1,4],"user_out":5,"ref_out":5,"is_correct":true}]`
