package service

import (
	"encoding/json"
	"strings"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/sandbox"
)

// Messages carried by synthetic results.
const (
	MessageParseFailure = "Failed to parse output"
	MessageNoOutput     = "No output"
	MessageTimedOut     = "Execution result not available in time"
	MessageTimeLimit    = "Time limit exceeded"
)

// ClassifyOutcome turns a raw execution outcome into per-case results and one submission status.
// Only a parsed harness payload goes through DeriveStatus; synthetic entries carry a fixed status.
func ClassifyOutcome(outcome sandbox.Outcome) ([]dto.TestCaseResult, string) {
	if strings.TrimSpace(outcome.Stdout) != "" {
		results, ok := parseHarnessOutput(outcome.Stdout)
		if ok {
			return results, DeriveStatus(results)
		}
		if outcome.StatusID == sandbox.StatusTimeLimitExceeded {
			return syntheticResult(MessageTimeLimit, outcome.Stdout), models.SubmissionStatusTimeLimitExceeded
		}
		return syntheticResult(MessageParseFailure, outcome.Stdout), models.SubmissionStatusRuntimeError
	}

	stderr := strings.TrimSpace(outcome.Stderr)
	compile := strings.TrimSpace(outcome.CompileOutput)

	switch {
	case outcome.StatusID == sandbox.StatusCompilationError || (stderr == "" && compile != ""):
		message := compile
		if message == "" {
			message = stderr
		}
		return syntheticResult(message, ""), models.SubmissionStatusCompileError
	case outcome.StatusID == sandbox.StatusTimeLimitExceeded:
		message := stderr
		if message == "" {
			message = MessageTimeLimit
		}
		return syntheticResult(message, ""), models.SubmissionStatusTimeLimitExceeded
	case stderr != "":
		return syntheticResult(outcome.Stderr, ""), models.SubmissionStatusRuntimeError
	default:
		return syntheticResult(MessageNoOutput, ""), models.SubmissionStatusWrongAnswer
	}
}

// TimedOutResults is the response body used when the execution backend never reported a result.
func TimedOutResults() ([]dto.TestCaseResult, string) {
	return syntheticResult(MessageTimedOut, ""), models.SubmissionStatusTimedOut
}

// DeriveStatus computes the status of a parsed result collection: Accepted when it is non-empty and
// every case is correct, else Runtime Error when any case errored, else Wrong Answer.
func DeriveStatus(results []dto.TestCaseResult) string {
	if len(results) == 0 {
		return models.SubmissionStatusWrongAnswer
	}

	allCorrect := true
	anyError := false
	for _, result := range results {
		if !result.IsCorrect {
			allCorrect = false
		}
		if result.Error != "" {
			anyError = true
		}
	}

	switch {
	case allCorrect:
		return models.SubmissionStatusAccepted
	case anyError:
		return models.SubmissionStatusRuntimeError
	default:
		return models.SubmissionStatusWrongAnswer
	}
}

// parseHarnessOutput accepts the whole stdout or, when the program printed stray lines at import
// time, the last non-empty line.
func parseHarnessOutput(stdout string) ([]dto.TestCaseResult, bool) {
	var results []dto.TestCaseResult
	trimmed := strings.TrimSpace(stdout)
	if err := json.Unmarshal([]byte(trimmed), &results); err == nil && results != nil {
		return results, true
	}

	lines := strings.Split(trimmed, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if len(lines) < 2 || !strings.HasPrefix(last, "[") {
		return nil, false
	}

	results = nil
	if err := json.Unmarshal([]byte(last), &results); err != nil || results == nil {
		return nil, false
	}
	return results, true
}

func syntheticResult(message, raw string) []dto.TestCaseResult {
	return []dto.TestCaseResult{{Error: message, Raw: raw, IsCorrect: false}}
}
