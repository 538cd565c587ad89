package dto

import "encoding/json"

// ExecuteRequest is the run-code payload. When TestInputs is empty and ProblemID is set, the
// stored test cases of that problem are used.
type ExecuteRequest struct {
	Code            string            `json:"code" validate:"required,max=65536"`
	TestInputs      []json.RawMessage `json:"test_inputs" validate:"max=200"`
	ExpectedOutputs []json.RawMessage `json:"expected_outputs" validate:"max=200"`
	ProblemID       *uint             `json:"problem_id,omitempty" validate:"omitempty,gt=0"`
	EntryPoint      string            `json:"entry_point,omitempty" validate:"omitempty,max=64"`
}

// TestCaseResult is the per-case verdict printed by the harness, or a synthetic entry
// produced when the program output could not be interpreted.
type TestCaseResult struct {
	Input     json.RawMessage `json:"input,omitempty"`
	UserOut   json.RawMessage `json:"user_out,omitempty"`
	RefOut    json.RawMessage `json:"ref_out,omitempty"`
	IsCorrect bool            `json:"is_correct"`
	Error     string          `json:"error,omitempty"`
	Raw       string          `json:"raw,omitempty"`
}

// ExecuteResponse is returned by the run-code endpoint.
type ExecuteResponse struct {
	Results          []TestCaseResult `json:"results"`
	SubmissionStatus string           `json:"submission_status"`
	SubmissionID     *uint            `json:"submission_id,omitempty"`
}
