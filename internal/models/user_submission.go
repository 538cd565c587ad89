package models

import "time"

// Submission is the immutable record of one execution attempt.
type Submission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	ProblemID uint      `gorm:"not null;index" json:"problem_id"`
	Code      string    `gorm:"type:text" json:"code"`
	Status    string    `gorm:"size:32;not null" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Problem   Problem   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TableName keeps the table name used by the profile and leaderboard views.
func (Submission) TableName() string {
	return "user_submissions"
}

// IsAccepted reports whether the submission passed every test case.
func (s Submission) IsAccepted() bool {
	return s.Status == SubmissionStatusAccepted
}
