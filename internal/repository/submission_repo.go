package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codearena-api/internal/models"
)

// SubmissionRepository persists execution attempts. Submissions are never updated.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Submission, error)
	CountByUser(ctx context.Context, userID string) (total int64, accepted int64, err error)
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Submission, error) {
	db := r.db.WithContext(ctx).Preload("Problem").Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var submissions []models.Submission
	if err := db.Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) CountByUser(ctx context.Context, userID string) (int64, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, 0, err
	}

	var accepted int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("user_id = ? AND status = ?", userID, models.SubmissionStatusAccepted).
		Count(&accepted).Error; err != nil {
		return 0, 0, err
	}

	return total, accepted, nil
}
