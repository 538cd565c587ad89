package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads problems into the catalog in bulk.
type SeedService interface {
	// SeedProblems upserts the given problems by slug. An empty batch seeds the built-in catalog.
	SeedProblems(ctx context.Context, token string, items []dto.CreateProblemRequest) (int64, error)
}

type seedService struct {
	problems  repository.ProblemRepository
	validator *validator.Validate
	strict    *bluemonday.Policy
	rich      *bluemonday.Policy
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(problems repository.ProblemRepository, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		problems:  problems,
		validator: validate,
		strict:    bluemonday.StrictPolicy(),
		rich:      bluemonday.UGCPolicy(),
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedProblems(ctx context.Context, token string, items []dto.CreateProblemRequest) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}
	if len(items) == 0 {
		items = DefaultProblemCatalog()
	}

	batch := make([]models.Problem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if err := s.validator.Struct(item); err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		problem, err := buildProblem(item, s.strict, s.rich, "seed")
		if err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := seen[problem.Slug]; dup {
			continue
		}
		seen[problem.Slug] = struct{}{}
		batch = append(batch, problem)
	}

	affected, err := s.problems.UpsertBatch(ctx, batch)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("affected", affected).Int("problems", len(batch)).Msg("problems seeded")
	return affected, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
