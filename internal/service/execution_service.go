package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/harness"
	"github.com/noah-isme/codearena-api/internal/observability"
	"github.com/noah-isme/codearena-api/internal/repository"
	"github.com/noah-isme/codearena-api/internal/sandbox"
)

// ErrExecutionUnavailable indicates the execution backend failed before producing an outcome.
var ErrExecutionUnavailable = errors.New("execution service unavailable")

// ExecutionService runs user code against test cases and records the attempt.
type ExecutionService interface {
	Execute(ctx context.Context, payload dto.ExecuteRequest, caller Caller) (dto.ExecuteResponse, error)
}

type executionService struct {
	runner    sandbox.Runner
	problems  repository.ProblemRepository
	recorder  SubmissionRecorder
	generator *harness.Generator
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewExecutionService constructs the execution pipeline.
func NewExecutionService(runner sandbox.Runner, problems repository.ProblemRepository, recorder SubmissionRecorder, validate *validator.Validate, logger zerolog.Logger) (ExecutionService, error) {
	generator, err := harness.NewGenerator(harness.DefaultEntryPoint)
	if err != nil {
		return nil, err
	}

	return &executionService{
		runner:    runner,
		problems:  problems,
		recorder:  recorder,
		generator: generator,
		validator: validate,
		logger:    logger.With().Str("component", "execution_service").Logger(),
	}, nil
}

func (s *executionService) Execute(ctx context.Context, payload dto.ExecuteRequest, caller Caller) (dto.ExecuteResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExecuteResponse{}, err
	}

	var problemID uint
	if payload.ProblemID != nil {
		problemID = *payload.ProblemID
	}

	inputs, expected, err := s.testCases(ctx, payload, problemID)
	if err != nil {
		return dto.ExecuteResponse{}, err
	}

	generator := s.generator
	if payload.EntryPoint != "" && payload.EntryPoint != generator.EntryPoint() {
		if generator, err = harness.NewGenerator(payload.EntryPoint); err != nil {
			return dto.ExecuteResponse{}, err
		}
	}

	program, err := generator.Generate(payload.Code, inputs, expected)
	if err != nil {
		return dto.ExecuteResponse{}, err
	}

	logger := s.logger.With().
		Str("backend", s.runner.Name()).
		Str("user_id", caller.UserID).
		Uint("problem_id", problemID).
		Int("test_cases", len(inputs)).
		Logger()

	start := time.Now()
	outcome, runErr := s.runner.Run(ctx, program)

	var results []dto.TestCaseResult
	var status string
	switch {
	case runErr == nil:
		results, status = ClassifyOutcome(outcome)
	case errors.Is(runErr, sandbox.ErrTimedOut):
		logger.Warn().Err(runErr).Msg("execution result not available in time")
		results, status = TimedOutResults()
	case ctx.Err() != nil:
		return dto.ExecuteResponse{}, ctx.Err()
	default:
		logger.Error().Err(runErr).Msg("execution backend failed")
		return dto.ExecuteResponse{}, fmt.Errorf("%w: %w", ErrExecutionUnavailable, runErr)
	}

	observability.SubmissionsTotal().WithLabelValues(status).Inc()
	logger.Info().
		Str("status", status).
		Int("judge_status_id", outcome.StatusID).
		Dur("duration", time.Since(start)).
		Msg("execution classified")

	response := dto.ExecuteResponse{Results: results, SubmissionStatus: status}

	if s.recorder != nil {
		recordCtx := context.WithoutCancel(ctx)
		if id, ok := s.recorder.Record(recordCtx, SubmissionRecord{
			Caller:    caller,
			ProblemID: problemID,
			Code:      payload.Code,
			Status:    status,
		}); ok {
			response.SubmissionID = &id
		}
	}

	return response, nil
}

// testCases returns the request's own cases, or the stored cases of the referenced problem when the
// request carries none.
func (s *executionService) testCases(ctx context.Context, payload dto.ExecuteRequest, problemID uint) ([]json.RawMessage, []json.RawMessage, error) {
	if len(payload.TestInputs) > 0 || len(payload.ExpectedOutputs) > 0 || problemID == 0 || s.problems == nil {
		return payload.TestInputs, payload.ExpectedOutputs, nil
	}

	problem, err := s.problems.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProblemNotFound
		}
		return nil, nil, err
	}

	inputs, outputs, err := problem.TestCases()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", harness.ErrMismatchedTestCases, err)
	}
	return inputs, outputs, nil
}
