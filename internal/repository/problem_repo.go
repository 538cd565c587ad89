package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/codearena-api/internal/models"
)

// ProblemQuery defines filters and pagination for the problem catalog.
type ProblemQuery struct {
	Difficulty string
	Topic      string
	Search     string
	Offset     int
	Limit      int
}

// ProblemRepository exposes persistence operations for problems.
type ProblemRepository interface {
	List(ctx context.Context, query ProblemQuery) ([]models.Problem, int64, error)
	GetByID(ctx context.Context, id uint) (models.Problem, error)
	Create(ctx context.Context, problem *models.Problem) error
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	UpsertBatch(ctx context.Context, problems []models.Problem) (int64, error)
}

// NewProblemRepository constructs a problem repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

type problemRepository struct {
	db *gorm.DB
}

func (r *problemRepository) List(ctx context.Context, query ProblemQuery) ([]models.Problem, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Problem{})

	if query.Difficulty != "" {
		db = db.Where("LOWER(difficulty) = ?", strings.ToLower(query.Difficulty))
	}
	if query.Topic != "" {
		db = db.Where("LOWER(topics) LIKE ?", fmt.Sprintf("%%%s%%", strings.ToLower(query.Topic)))
	}
	if query.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", strings.ToLower(query.Search))
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var problems []models.Problem
	if err := db.Order("id ASC").Find(&problems).Error; err != nil {
		return nil, 0, err
	}

	return problems, total, nil
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).First(&problem, id).Error; err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

func (r *problemRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Problem{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertBatch inserts problems keyed by slug, refreshing the content of existing rows.
func (r *problemRepository) UpsertBatch(ctx context.Context, problems []models.Problem) (int64, error) {
	if len(problems) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "difficulty", "topics", "template", "inputs", "outputs", "updated_at"}),
	})

	result := tx.Create(&problems)
	return result.RowsAffected, result.Error
}
