// Package docker runs untrusted programs inside short-lived, resource-limited containers.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codearena",
		Subsystem: "sandbox",
		Name:      "run_duration_seconds",
		Help:      "Wall time of sandbox container runs",
		Buckets:   prometheus.DefBuckets,
	}, []string{"image"})

	runTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codearena",
		Subsystem: "sandbox",
		Name:      "run_timeouts_total",
		Help:      "Number of sandbox runs killed after exceeding their deadline",
	}, []string{"image"})

	runFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codearena",
		Subsystem: "sandbox",
		Name:      "run_failures_total",
		Help:      "Number of sandbox runs that failed before producing a result",
	}, []string{"image"})
)

// ErrTimedOut is returned alongside a partial result when a run exceeds its deadline.
var ErrTimedOut = errors.New("sandbox run timed out")

// Executor runs a command inside an isolated container.
type Executor interface {
	Run(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
}

// ExecutionRequest describes one sandboxed run. Workspace is bind-mounted at WorkingDir.
type ExecutionRequest struct {
	Image           string
	Cmd             []string
	Env             []string
	Timeout         time.Duration
	Workspace       string
	WorkingDir      string
	MemoryLimitMB   int64
	CPUShares       int64
	NetworkDisabled bool
	ReadOnlyFS      bool
}

// ExecutionResult is what the container produced.
type ExecutionResult struct {
	Stdout           string
	Stderr           string
	ExitCode         int
	Duration         time.Duration
	TimedOut         bool
	MemoryUsageBytes int64
	CPUUsageNanosec  uint64
}

// Config holds defaults applied when a request leaves a limit unset.
type Config struct {
	Host          string
	Timeout       time.Duration
	MemoryLimitMB int64
	CPUShares     int64
	WorkingDir    string
	Logger        zerolog.Logger
}

// DockerExecutor is an Executor backed by the Docker Engine API.
type DockerExecutor struct {
	client *client.Client
	cfg    Config
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewDockerExecutor connects to the Docker daemon at cfg.Host, or the environment default.
func NewDockerExecutor(cfg Config) (*DockerExecutor, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "/workspace"
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &DockerExecutor{
		client: cli,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/codearena-api/pkg/docker"),
		logger: logger.With().Str("component", "docker_executor").Logger(),
	}, nil
}

// Run creates the container, waits for it to exit or hit its deadline, and collects its output.
// The container is always force-removed.
func (e *DockerExecutor) Run(parent context.Context, req ExecutionRequest) (ExecutionResult, error) {
	if req.Image == "" {
		return ExecutionResult{}, errors.New("image is required")
	}
	image := req.Image

	ctx, span := e.tracer.Start(parent, "docker.executor.run", trace.WithAttributes(
		attribute.String("docker.image", image),
	))
	defer span.End()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	containerCfg := &container.Config{
		Image:        image,
		Cmd:          req.Cmd,
		Env:          req.Env,
		WorkingDir:   req.WorkingDir,
		AttachStdout: true,
		AttachStderr: true,
	}
	if containerCfg.WorkingDir == "" {
		containerCfg.WorkingDir = e.cfg.WorkingDir
	}

	fail := func(step string, err error) (ExecutionResult, error) {
		runFailures.WithLabelValues(image).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ExecutionResult{}, fmt.Errorf("container %s: %w", step, err)
	}

	start := time.Now()
	created, err := e.client.ContainerCreate(runCtx, containerCfg, e.hostConfig(req), &network.NetworkingConfig{}, nil, "")
	if err != nil {
		return fail("create", err)
	}
	containerID := created.ID
	defer e.remove(containerID)

	if err := e.client.ContainerStart(runCtx, containerID, container.StartOptions{}); err != nil {
		return fail("start", err)
	}

	result := ExecutionResult{}
	statusCh, errCh := e.client.ContainerWait(runCtx, containerID, container.WaitConditionNextExit)

	var waitErr error
	select {
	case err := <-errCh:
		waitErr = err
	case status := <-statusCh:
		result.ExitCode = int(status.StatusCode)
	case <-runCtx.Done():
		waitErr = runCtx.Err()
	}

	result.Duration = time.Since(start)
	runDuration.WithLabelValues(image).Observe(result.Duration.Seconds())

	if waitErr != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			result.TimedOut = true
			runTimeouts.WithLabelValues(image).Inc()
			e.kill(containerID)
			span.SetStatus(codes.Error, "execution timed out")
		case ctx.Err() != nil:
			e.kill(containerID)
			return result, ctx.Err()
		default:
			return fail("wait", waitErr)
		}
	}

	e.collectLogs(ctx, containerID, &result)
	e.collectStats(ctx, containerID, &result)

	if result.TimedOut {
		return result, fmt.Errorf("%w after %s", ErrTimedOut, timeout)
	}
	return result, nil
}

func (e *DockerExecutor) hostConfig(req ExecutionRequest) *container.HostConfig {
	memoryMB := req.MemoryLimitMB
	if memoryMB == 0 {
		memoryMB = e.cfg.MemoryLimitMB
	}
	cpuShares := req.CPUShares
	if cpuShares == 0 {
		cpuShares = e.cfg.CPUShares
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:    memoryMB * 1024 * 1024,
			CPUShares: cpuShares,
		},
		NetworkMode:    "bridge",
		ReadonlyRootfs: req.ReadOnlyFS,
	}
	if req.NetworkDisabled {
		hostCfg.NetworkMode = "none"
	}

	if req.Workspace != "" {
		target := req.WorkingDir
		if target == "" {
			target = e.cfg.WorkingDir
		}
		hostCfg.Mounts = append(hostCfg.Mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: req.Workspace,
			Target: target,
		})
	}

	return hostCfg
}

func (e *DockerExecutor) collectLogs(ctx context.Context, containerID string, result *ExecutionResult) {
	logs, err := e.client.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to fetch container logs")
		return
	}
	defer logs.Close()

	stdout, stderr, err := splitDockerLogs(logs)
	if err != nil {
		e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to read container logs")
		return
	}
	result.Stdout = stdout
	result.Stderr = stderr
}

func (e *DockerExecutor) collectStats(ctx context.Context, containerID string, result *ExecutionResult) {
	statsCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats, err := e.client.ContainerStatsOneShot(statsCtx, containerID)
	if err != nil {
		return
	}
	defer stats.Body.Close()

	var data types.StatsJSON
	if err := json.NewDecoder(stats.Body).Decode(&data); err == nil {
		result.MemoryUsageBytes = int64(data.MemoryStats.Usage)
		result.CPUUsageNanosec = data.CPUStats.CPUUsage.TotalUsage
	}
}

func (e *DockerExecutor) kill(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.client.ContainerKill(ctx, containerID, "KILL"); err != nil {
		e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to kill container")
	}
}

func (e *DockerExecutor) remove(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to remove container")
	}
}

func splitDockerLogs(reader io.Reader) (string, string, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, reader); err != nil {
		return "", "", err
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}

// Close releases the Docker client.
func (e *DockerExecutor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
