package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/handler"
	"github.com/noah-isme/codearena-api/internal/service"
)

type stubExecutionService struct {
	response dto.ExecuteResponse
}

func (s stubExecutionService) Execute(context.Context, dto.ExecuteRequest, service.Caller) (dto.ExecuteResponse, error) {
	return s.response, nil
}

func TestExecuteResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "execute_response.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	submissionID := uint(42)
	responses := []dto.ExecuteResponse{
		{
			SubmissionStatus: "Wrong Answer",
			SubmissionID:     &submissionID,
			Results: []dto.TestCaseResult{
				{Input: json.RawMessage(`[2,3]`), UserOut: json.RawMessage(`5`), RefOut: json.RawMessage(`5`), IsCorrect: true},
				{Input: json.RawMessage(`[1,4]`), UserOut: json.RawMessage(`6`), RefOut: json.RawMessage(`5`), IsCorrect: false},
			},
		},
		{
			SubmissionStatus: "Runtime Error",
			Results:          []dto.TestCaseResult{{Error: service.MessageParseFailure, Raw: "Traceback"}},
		},
	}

	for _, response := range responses {
		app := fiber.New()
		handler.NewExecutionHandler(stubExecutionService{response: response}, zerolog.Nop()).Register(app.Group("/api/v2/run-code"))

		req := httptest.NewRequest(http.MethodPost, "/api/v2/run-code", strings.NewReader(`{"code":"def solution(): pass"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()

		var payload interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.NoError(t, schema.Validate(payload))
	}
}
