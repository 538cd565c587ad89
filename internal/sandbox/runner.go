// Package sandbox hides which backend executes a harness program.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted in configuration.
const (
	BackendJudge0 = "judge0"
	BackendDocker = "docker"
)

var (
	// ErrUnavailable indicates the execution backend could not run the program.
	ErrUnavailable = errors.New("execution service unavailable")
	// ErrTimedOut indicates the backend accepted the program but no result arrived in time.
	ErrTimedOut = errors.New("execution result not available in time")
	// ErrUnsupportedBackend indicates an unknown backend name.
	ErrUnsupportedBackend = errors.New("unsupported execution backend")
)

// Judge-compatible status ids reported in Outcome.StatusID.
const (
	StatusAccepted          = 3
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeError      = 11
)

// Outcome is the raw result of running one program.
type Outcome struct {
	StatusID      int
	Status        string
	Stdout        string
	Stderr        string
	CompileOutput string
}

// Runner executes a complete program and reports its raw outcome.
type Runner interface {
	Run(ctx context.Context, program string) (Outcome, error)
	Name() string
}

// NormalizeBackend validates a configured backend name.
func NormalizeBackend(name string) (string, error) {
	switch value := strings.ToLower(strings.TrimSpace(name)); value {
	case "", BackendJudge0:
		return BackendJudge0, nil
	case BackendDocker:
		return BackendDocker, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
	}
}
