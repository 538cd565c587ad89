package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/codearena-api/internal/models"
)

// ProblemFilter defines query parameters for listing problems.
type ProblemFilter struct {
	Difficulty string `query:"difficulty"`
	Topic      string `query:"topic"`
	Search     string `query:"search"`
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
}

// Pagination describes pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
}

// CreateProblemRequest is the payload for adding a problem to the catalog.
type CreateProblemRequest struct {
	Title       string            `json:"title" validate:"required,max=255"`
	Description string            `json:"description" validate:"required"`
	Difficulty  string            `json:"difficulty" validate:"required,oneof=Easy Medium Hard easy medium hard"`
	Topics      string            `json:"topics" validate:"max=512"`
	Template    string            `json:"template"`
	Inputs      []json.RawMessage `json:"inputs" validate:"required,min=1,max=200"`
	Outputs     []json.RawMessage `json:"outputs" validate:"required,min=1,max=200"`
}

// ProblemResponse is the public view of a problem. Test cases stay hidden.
type ProblemResponse struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Difficulty    string    `json:"difficulty"`
	Topics        []string  `json:"topics"`
	Template      string    `json:"template"`
	TestCaseCount int       `json:"test_case_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProblemListResponse wraps problems and pagination metadata.
type ProblemListResponse struct {
	Items      []ProblemResponse `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// NewProblemResponse builds a response DTO from the model.
func NewProblemResponse(problem models.Problem) ProblemResponse {
	count := 0
	if inputs, _, err := problem.TestCases(); err == nil {
		count = len(inputs)
	}

	return ProblemResponse{
		ID:            problem.ID,
		Title:         problem.Title,
		Slug:          problem.Slug,
		Description:   problem.Description,
		Difficulty:    problem.Difficulty,
		Topics:        problem.TopicsSlice(),
		Template:      problem.Template,
		TestCaseCount: count,
		CreatedAt:     problem.CreatedAt,
	}
}

// NewProblemListResponse builds a list response from models and pagination meta.
func NewProblemListResponse(problems []models.Problem, pagination Pagination) ProblemListResponse {
	items := make([]ProblemResponse, 0, len(problems))
	for _, problem := range problems {
		items = append(items, NewProblemResponse(problem))
	}

	return ProblemListResponse{Items: items, Pagination: pagination}
}
