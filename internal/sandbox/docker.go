package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	dockerexec "github.com/noah-isme/codearena-api/pkg/docker"
)

// DockerConfig describes the local container sandbox.
type DockerConfig struct {
	Image         string
	Timeout       time.Duration
	MemoryLimitMB int
	CPUShares     int
	WorkspaceRoot string
}

// DockerRunner executes programs in a local Python container.
type DockerRunner struct {
	executor dockerexec.Executor
	cfg      DockerConfig
}

// NewDockerRunner constructs a runner over the given executor.
func NewDockerRunner(executor dockerexec.Executor, cfg DockerConfig) *DockerRunner {
	if cfg.Image == "" {
		cfg.Image = "python:3.11-alpine"
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = os.TempDir()
	}
	return &DockerRunner{executor: executor, cfg: cfg}
}

// Name implements Runner.
func (r *DockerRunner) Name() string { return BackendDocker }

// Run implements Runner.
func (r *DockerRunner) Run(ctx context.Context, program string) (Outcome, error) {
	workspace, err := os.MkdirTemp(r.cfg.WorkspaceRoot, "run-")
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: create workspace: %v", ErrUnavailable, err)
	}
	defer os.RemoveAll(workspace)

	if err := os.WriteFile(filepath.Join(workspace, "main.py"), []byte(program), 0o644); err != nil {
		return Outcome{}, fmt.Errorf("%w: write program: %v", ErrUnavailable, err)
	}

	result, err := r.executor.Run(ctx, dockerexec.ExecutionRequest{
		Image:           r.cfg.Image,
		Cmd:             []string{"python", "main.py"},
		Timeout:         r.cfg.Timeout,
		Workspace:       workspace,
		WorkingDir:      "/workspace",
		MemoryLimitMB:   int64(r.cfg.MemoryLimitMB),
		CPUShares:       int64(r.cfg.CPUShares),
		NetworkDisabled: true,
	})

	outcome := Outcome{Stdout: result.Stdout, Stderr: result.Stderr}
	switch {
	case result.TimedOut || errors.Is(err, dockerexec.ErrTimedOut):
		outcome.StatusID = StatusTimeLimitExceeded
		outcome.Status = "Time Limit Exceeded"
	case err != nil:
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		return Outcome{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	case result.ExitCode != 0:
		outcome.StatusID = StatusRuntimeError
		outcome.Status = "Runtime Error (NZEC)"
	default:
		outcome.StatusID = StatusAccepted
		outcome.Status = "Accepted"
	}

	return outcome, nil
}
