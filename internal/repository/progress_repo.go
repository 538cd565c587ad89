package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/codearena-api/internal/models"
)

// SolvedCount is one (user, difficulty) bucket of solved problems.
type SolvedCount struct {
	UserID     string
	Username   string
	Difficulty string
	Solved     int64
}

// ProgressRepository persists per-(user, problem) progress.
type ProgressRepository interface {
	UpsertSolved(ctx context.Context, userID string, problemID uint, submissionID uint) error
	ListByUser(ctx context.Context, userID string) ([]models.UserProgress, error)
	SolvedCounts(ctx context.Context) ([]SolvedCount, error)
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

type progressRepository struct {
	db *gorm.DB
}

// UpsertSolved marks the problem solved for the user. Concurrent calls for the same pair converge
// on one row and the last writer's submission id wins.
func (r *progressRepository) UpsertSolved(ctx context.Context, userID string, problemID uint, submissionID uint) error {
	progress := models.UserProgress{
		UserID:           userID,
		ProblemID:        problemID,
		Status:           models.ProgressStatusSolved,
		LastSubmissionID: submissionID,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "problem_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_submission_id", "updated_at"}),
	}).Create(&progress).Error
}

func (r *progressRepository) ListByUser(ctx context.Context, userID string) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	err := r.db.WithContext(ctx).
		Preload("Problem").
		Where("user_id = ? AND status = ?", userID, models.ProgressStatusSolved).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *progressRepository) SolvedCounts(ctx context.Context) ([]SolvedCount, error) {
	var rows []SolvedCount
	err := r.db.WithContext(ctx).
		Table("user_progress").
		Select("user_progress.user_id AS user_id, COALESCE(users.username, '') AS username, problems.difficulty AS difficulty, COUNT(*) AS solved").
		Joins("JOIN problems ON problems.id = user_progress.problem_id").
		Joins("LEFT JOIN users ON users.id = user_progress.user_id").
		Where("user_progress.status = ?", models.ProgressStatusSolved).
		Group("user_progress.user_id, users.username, problems.difficulty").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
