package models

import "time"

// UserProgress tracks the solved state of a problem for a single user.
type UserProgress struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"size:64;not null;uniqueIndex:idx_user_progress_user_problem" json:"user_id"`
	ProblemID        uint      `gorm:"not null;uniqueIndex:idx_user_progress_user_problem" json:"problem_id"`
	Status           string    `gorm:"size:16;not null" json:"status"`
	LastSubmissionID uint      `gorm:"not null" json:"last_submission_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Problem          Problem   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TableName keeps the table name shared with the leaderboard aggregation.
func (UserProgress) TableName() string {
	return "user_progress"
}
