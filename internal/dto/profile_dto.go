package dto

import (
	"time"

	"github.com/noah-isme/codearena-api/internal/models"
)

// SubmissionSummary is a submission as listed on a profile.
type SubmissionSummary struct {
	ID           uint      `json:"id"`
	ProblemID    uint      `json:"problem_id"`
	ProblemTitle string    `json:"problem_title"`
	Status       string    `json:"status"`
	Code         string    `json:"code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProgressSummary is one solved problem.
type ProgressSummary struct {
	ProblemID        uint      `json:"problem_id"`
	ProblemTitle     string    `json:"problem_title"`
	Difficulty       string    `json:"difficulty"`
	Status           string    `json:"status"`
	LastSubmissionID uint      `json:"last_submission_id"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProfileStats aggregates solved counts by difficulty.
type ProfileStats struct {
	Solved           int `json:"solved"`
	Easy             int `json:"easy"`
	Medium           int `json:"medium"`
	Hard             int `json:"hard"`
	Points           int `json:"points"`
	TotalSubmissions int `json:"total_submissions"`
	Accepted         int `json:"accepted"`
}

// ProfileResponse is the profile page payload.
type ProfileResponse struct {
	UserID      string              `json:"user_id"`
	Username    string              `json:"username"`
	DisplayName string              `json:"display_name"`
	Stats       ProfileStats        `json:"stats"`
	Progress    []ProgressSummary   `json:"progress"`
	Submissions []SubmissionSummary `json:"submissions"`
}

// NewSubmissionSummary builds a summary; code is included only for the owner.
func NewSubmissionSummary(submission models.Submission, includeCode bool) SubmissionSummary {
	summary := SubmissionSummary{
		ID:           submission.ID,
		ProblemID:    submission.ProblemID,
		ProblemTitle: submission.Problem.Title,
		Status:       submission.Status,
		CreatedAt:    submission.CreatedAt,
	}
	if includeCode {
		summary.Code = submission.Code
	}
	return summary
}

// NewProgressSummary builds a progress row summary.
func NewProgressSummary(progress models.UserProgress) ProgressSummary {
	return ProgressSummary{
		ProblemID:        progress.ProblemID,
		ProblemTitle:     progress.Problem.Title,
		Difficulty:       progress.Problem.Difficulty,
		Status:           progress.Status,
		LastSubmissionID: progress.LastSubmissionID,
		UpdatedAt:        progress.UpdatedAt,
	}
}
