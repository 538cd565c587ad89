package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/observability"
	"github.com/noah-isme/codearena-api/internal/repository"
)

// Caller identifies the authenticated user behind a request. The zero value is anonymous.
type Caller struct {
	UserID   string
	Username string
	Role     string
}

// Anonymous reports whether no identity was resolved.
func (c Caller) Anonymous() bool {
	return strings.TrimSpace(c.UserID) == ""
}

// SubmissionRecord is one classified execution to persist.
type SubmissionRecord struct {
	Caller    Caller
	ProblemID uint
	Code      string
	Status    string
}

// SubmissionRecorder persists executions. Recording is best effort: failures are logged and counted
// but never surface to the caller.
type SubmissionRecorder interface {
	Record(ctx context.Context, record SubmissionRecord) (submissionID uint, recorded bool)
}

// LeaderboardInvalidator drops cached rankings after progress changes.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context)
}

type submissionRecorder struct {
	submissions repository.SubmissionRepository
	progress    repository.ProgressRepository
	users       repository.UserRepository
	leaderboard LeaderboardInvalidator
	events      SubmissionEventPublisher
	logger      zerolog.Logger
}

// NewSubmissionRecorder constructs a recorder. users, leaderboard and events are optional.
func NewSubmissionRecorder(submissions repository.SubmissionRepository, progress repository.ProgressRepository, users repository.UserRepository, leaderboard LeaderboardInvalidator, events SubmissionEventPublisher, logger zerolog.Logger) SubmissionRecorder {
	return &submissionRecorder{
		submissions: submissions,
		progress:    progress,
		users:       users,
		leaderboard: leaderboard,
		events:      events,
		logger:      logger.With().Str("component", "submission_recorder").Logger(),
	}
}

func (r *submissionRecorder) Record(ctx context.Context, record SubmissionRecord) (uint, bool) {
	if record.Caller.Anonymous() || record.ProblemID == 0 {
		r.logger.Debug().
			Bool("anonymous", record.Caller.Anonymous()).
			Uint("problem_id", record.ProblemID).
			Msg("skipping submission recording")
		return 0, false
	}

	logger := r.logger.With().
		Str("user_id", record.Caller.UserID).
		Uint("problem_id", record.ProblemID).
		Str("status", record.Status).
		Logger()

	if r.users != nil && strings.TrimSpace(record.Caller.Username) != "" {
		user := models.User{ID: record.Caller.UserID, Username: record.Caller.Username}
		if err := r.users.Ensure(ctx, user); err != nil {
			observability.PersistenceFailures().WithLabelValues("user").Inc()
			logger.Warn().Err(err).Msg("failed to ensure user record")
		}
	}

	submission := models.Submission{
		UserID:    record.Caller.UserID,
		ProblemID: record.ProblemID,
		Code:      record.Code,
		Status:    record.Status,
	}
	if err := r.submissions.Create(ctx, &submission); err != nil {
		observability.PersistenceFailures().WithLabelValues("submission").Inc()
		logger.Error().Err(err).Msg("failed to record submission")
		return 0, false
	}

	solved := false
	if submission.IsAccepted() {
		if err := r.progress.UpsertSolved(ctx, submission.UserID, submission.ProblemID, submission.ID); err != nil {
			observability.PersistenceFailures().WithLabelValues("progress").Inc()
			logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to upsert user progress")
		} else {
			solved = true
			if r.leaderboard != nil {
				r.leaderboard.Invalidate(ctx)
			}
		}
	}

	if r.events != nil {
		r.events.Publish(ctx, SubmissionEvent{
			SubmissionID: submission.ID,
			UserID:       submission.UserID,
			ProblemID:    submission.ProblemID,
			Status:       submission.Status,
			Solved:       solved,
		})
	}

	logger.Info().Uint("submission_id", submission.ID).Bool("solved", solved).Msg("submission recorded")
	return submission.ID, true
}
