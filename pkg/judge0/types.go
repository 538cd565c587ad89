package judge0

import "errors"

// Judge0 status identifiers. Anything above StatusProcessing is terminal.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeErrorNZEC  = 11
	StatusInternalError     = 13
)

// LanguagePython3 is the Judge0 CE language id for Python 3.8.
const LanguagePython3 = 71

// ErrSubmissionRejected indicates the submit call failed or returned a non-success response.
var ErrSubmissionRejected = errors.New("judge0 rejected submission")

// ErrPollTimeout indicates the submission did not reach a terminal state within the poll budget.
var ErrPollTimeout = errors.New("judge0 submission did not finish in time")

// ErrMalformedResponse indicates Judge0 returned a payload that could not be decoded.
var ErrMalformedResponse = errors.New("judge0 returned a malformed response")

// Status is the status object attached to every submission.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Terminal reports whether the submission has left the queue and finished running.
func (s Status) Terminal() bool {
	return s.ID > StatusProcessing
}

// Result is a terminal submission with every output field decoded.
type Result struct {
	Token         string
	Status        Status
	Stdout        string
	Stderr        string
	CompileOutput string
	PollAttempts  int
}

type submissionRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type submissionResponse struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Status        *Status `json:"status"`
}
