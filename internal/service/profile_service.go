package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/repository"
)

// ErrUserNotFound indicates no user matches the requested username.
var ErrUserNotFound = errors.New("user not found")

// ErrUnauthenticated indicates an operation that needs a resolved caller identity.
var ErrUnauthenticated = errors.New("authentication required")

const profileSubmissionLimit = 50

// ProfileService assembles per-user progress and submission history.
type ProfileService interface {
	ForCaller(ctx context.Context, caller Caller) (dto.ProfileResponse, error)
	ForUsername(ctx context.Context, username string, viewer Caller) (dto.ProfileResponse, error)
	Submissions(ctx context.Context, caller Caller, limit int) ([]dto.SubmissionSummary, error)
}

type profileService struct {
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	progress    repository.ProgressRepository
	logger      zerolog.Logger
}

// NewProfileService constructs the profile service.
func NewProfileService(users repository.UserRepository, submissions repository.SubmissionRepository, progress repository.ProgressRepository, logger zerolog.Logger) ProfileService {
	return &profileService{
		users:       users,
		submissions: submissions,
		progress:    progress,
		logger:      logger.With().Str("component", "profile_service").Logger(),
	}
}

// ForCaller works for callers that have never been projected into the users table.
func (s *profileService) ForCaller(ctx context.Context, caller Caller) (dto.ProfileResponse, error) {
	if caller.Anonymous() {
		return dto.ProfileResponse{}, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, err
		}
		user = models.User{ID: caller.UserID, Username: caller.Username}
		if user.Username == "" {
			user.Username = caller.UserID
		}
	}

	return s.build(ctx, user, true)
}

func (s *profileService) ForUsername(ctx context.Context, username string, viewer Caller) (dto.ProfileResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return dto.ProfileResponse{}, ErrUserNotFound
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, ErrUserNotFound
		}
		return dto.ProfileResponse{}, err
	}

	return s.build(ctx, user, !viewer.Anonymous() && viewer.UserID == user.ID)
}

func (s *profileService) Submissions(ctx context.Context, caller Caller, limit int) ([]dto.SubmissionSummary, error) {
	if caller.Anonymous() {
		return nil, ErrUnauthenticated
	}
	if limit <= 0 || limit > 200 {
		limit = profileSubmissionLimit
	}

	submissions, err := s.submissions.ListByUser(ctx, caller.UserID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.SubmissionSummary, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.NewSubmissionSummary(submission, true))
	}
	return items, nil
}

func (s *profileService) build(ctx context.Context, user models.User, owner bool) (dto.ProfileResponse, error) {
	progress, err := s.progress.ListByUser(ctx, user.ID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	submissions, err := s.submissions.ListByUser(ctx, user.ID, profileSubmissionLimit)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	total, accepted, err := s.submissions.CountByUser(ctx, user.ID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	response := dto.ProfileResponse{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
		Progress:    make([]dto.ProgressSummary, 0, len(progress)),
		Submissions: make([]dto.SubmissionSummary, 0, len(submissions)),
		Stats: dto.ProfileStats{
			TotalSubmissions: int(total),
			Accepted:         int(accepted),
		},
	}

	for _, row := range progress {
		response.Progress = append(response.Progress, dto.NewProgressSummary(row))
		response.Stats.Solved++
		response.Stats.Points += models.DifficultyPoints(row.Problem.Difficulty)
		switch row.Problem.Difficulty {
		case models.DifficultyEasy:
			response.Stats.Easy++
		case models.DifficultyMedium:
			response.Stats.Medium++
		case models.DifficultyHard:
			response.Stats.Hard++
		}
	}

	for _, submission := range submissions {
		response.Submissions = append(response.Submissions, dto.NewSubmissionSummary(submission, owner))
	}

	return response, nil
}
