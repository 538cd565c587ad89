package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/harness"
	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/repository"
)

// ErrProblemNotFound indicates the requested problem does not exist.
var ErrProblemNotFound = errors.New("problem not found")

// ErrInvalidDifficulty indicates a difficulty outside Easy, Medium and Hard.
var ErrInvalidDifficulty = errors.New("invalid difficulty")

// ErrInvalidProblem indicates the problem payload is unusable after normalisation.
var ErrInvalidProblem = errors.New("invalid problem")

// ErrProblemExists indicates another problem already uses the same title slug.
var ErrProblemExists = errors.New("problem already exists")

// ProblemService exposes the problem catalog.
type ProblemService interface {
	List(ctx context.Context, filter dto.ProblemFilter) (dto.ProblemListResponse, error)
	Get(ctx context.Context, id uint) (dto.ProblemResponse, error)
	Create(ctx context.Context, payload dto.CreateProblemRequest, createdBy string) (dto.ProblemResponse, error)
}

type problemService struct {
	repo      repository.ProblemRepository
	validator *validator.Validate
	strict    *bluemonday.Policy
	rich      *bluemonday.Policy
	logger    zerolog.Logger
}

// NewProblemService builds a new problem service.
func NewProblemService(repo repository.ProblemRepository, validate *validator.Validate, logger zerolog.Logger) ProblemService {
	return &problemService{
		repo:      repo,
		validator: validate,
		strict:    bluemonday.StrictPolicy(),
		rich:      bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "problem_service").Logger(),
	}
}

func (s *problemService) List(ctx context.Context, filter dto.ProblemFilter) (dto.ProblemListResponse, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	difficulty := ""
	if filter.Difficulty != "" {
		normalized, ok := models.NormalizeDifficulty(filter.Difficulty)
		if !ok {
			return dto.ProblemListResponse{}, ErrInvalidDifficulty
		}
		difficulty = normalized
	}

	problems, total, err := s.repo.List(ctx, repository.ProblemQuery{
		Difficulty: difficulty,
		Topic:      strings.TrimSpace(filter.Topic),
		Search:     strings.TrimSpace(filter.Search),
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	})
	if err != nil {
		return dto.ProblemListResponse{}, err
	}

	return dto.NewProblemListResponse(problems, dto.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: int(total),
	}), nil
}

func (s *problemService) Get(ctx context.Context, id uint) (dto.ProblemResponse, error) {
	problem, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, ErrProblemNotFound
		}
		return dto.ProblemResponse{}, err
	}
	return dto.NewProblemResponse(problem), nil
}

func (s *problemService) Create(ctx context.Context, payload dto.CreateProblemRequest, createdBy string) (dto.ProblemResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemResponse{}, err
	}

	problem, err := buildProblem(payload, s.strict, s.rich, createdBy)
	if err != nil {
		return dto.ProblemResponse{}, err
	}

	exists, err := s.repo.ExistsBySlug(ctx, problem.Slug)
	if err != nil {
		return dto.ProblemResponse{}, err
	}
	if exists {
		return dto.ProblemResponse{}, ErrProblemExists
	}

	if err := s.repo.Create(ctx, &problem); err != nil {
		return dto.ProblemResponse{}, err
	}

	s.logger.Info().Uint("problem_id", problem.ID).Str("created_by", createdBy).Msg("problem created")
	return dto.NewProblemResponse(problem), nil
}

// buildProblem normalises a catalog payload into a model. Markup is stripped from the title and topics;
// the description keeps safe formatting.
func buildProblem(payload dto.CreateProblemRequest, strict, rich *bluemonday.Policy, createdBy string) (models.Problem, error) {
	difficulty, ok := models.NormalizeDifficulty(payload.Difficulty)
	if !ok {
		return models.Problem{}, ErrInvalidDifficulty
	}

	if _, err := harness.BuildCases(payload.Inputs, payload.Outputs); err != nil {
		return models.Problem{}, err
	}

	inputs, err := json.Marshal(payload.Inputs)
	if err != nil {
		return models.Problem{}, fmt.Errorf("encode inputs: %w", err)
	}
	outputs, err := json.Marshal(payload.Outputs)
	if err != nil {
		return models.Problem{}, fmt.Errorf("encode outputs: %w", err)
	}

	problem := models.Problem{
		Title:       strings.TrimSpace(strict.Sanitize(payload.Title)),
		Description: strings.TrimSpace(rich.Sanitize(payload.Description)),
		Difficulty:  difficulty,
		Topics:      strings.Join(splitTopics(strict.Sanitize(payload.Topics)), ","),
		Template:    payload.Template,
		Inputs:      datatypes.JSON(inputs),
		Outputs:     datatypes.JSON(outputs),
		CreatedBy:   createdBy,
	}
	if problem.Title == "" {
		return models.Problem{}, fmt.Errorf("%w: title is empty after sanitising", ErrInvalidProblem)
	}
	problem.Slug = models.Slugify(problem.Title)
	if problem.Slug == "" {
		return models.Problem{}, fmt.Errorf("%w: title has no usable characters", ErrInvalidProblem)
	}

	return problem, nil
}

func splitTopics(raw string) []string {
	parts := strings.Split(raw, ",")
	topics := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		topic := strings.TrimSpace(part)
		if topic == "" {
			continue
		}
		key := strings.ToLower(topic)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		topics = append(topics, topic)
	}
	return topics
}
