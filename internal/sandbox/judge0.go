package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/codearena-api/pkg/judge0"
)

// Judge0Client is the subset of the Judge0 client the runner needs.
type Judge0Client interface {
	Run(ctx context.Context, source string, languageID int) (judge0.Result, error)
}

// Judge0Runner executes programs on a remote Judge0 service.
type Judge0Runner struct {
	client     Judge0Client
	languageID int
}

// NewJudge0Runner constructs a runner. A zero language id selects Python 3.
func NewJudge0Runner(client Judge0Client, languageID int) *Judge0Runner {
	if languageID <= 0 {
		languageID = judge0.LanguagePython3
	}
	return &Judge0Runner{client: client, languageID: languageID}
}

// Name implements Runner.
func (r *Judge0Runner) Name() string { return BackendJudge0 }

// Run implements Runner.
func (r *Judge0Runner) Run(ctx context.Context, program string) (Outcome, error) {
	result, err := r.client.Run(ctx, program, r.languageID)
	if err != nil {
		switch {
		case errors.Is(err, judge0.ErrPollTimeout):
			return Outcome{}, fmt.Errorf("%w: %w", ErrTimedOut, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Outcome{}, err
		default:
			return Outcome{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	return Outcome{
		StatusID:      result.Status.ID,
		Status:        result.Status.Description,
		Stdout:        result.Stdout,
		Stderr:        result.Stderr,
		CompileOutput: result.CompileOutput,
	}, nil
}
