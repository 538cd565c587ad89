package docker

import (
	"bytes"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/require"
)

func TestSplitDockerLogsSeparatesStreams(t *testing.T) {
	var buf bytes.Buffer
	_, err := stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte("[1, 2]\n"))
	require.NoError(t, err)
	_, err = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte("warning\n"))
	require.NoError(t, err)

	stdout, stderr, err := splitDockerLogs(&buf)
	require.NoError(t, err)
	require.Equal(t, "[1, 2]\n", stdout)
	require.Equal(t, "warning\n", stderr)
}

func TestHostConfigAppliesDefaultsAndIsolation(t *testing.T) {
	executor := &DockerExecutor{cfg: Config{MemoryLimitMB: 128, CPUShares: 256, WorkingDir: "/workspace"}}

	hostCfg := executor.hostConfig(ExecutionRequest{Workspace: "/tmp/run-1", NetworkDisabled: true})
	require.Equal(t, int64(128*1024*1024), hostCfg.Resources.Memory)
	require.Equal(t, int64(256), hostCfg.Resources.CPUShares)
	require.Equal(t, "none", string(hostCfg.NetworkMode))
	require.Len(t, hostCfg.Mounts, 1)
	require.Equal(t, "/tmp/run-1", hostCfg.Mounts[0].Source)
	require.Equal(t, "/workspace", hostCfg.Mounts[0].Target)

	hostCfg = executor.hostConfig(ExecutionRequest{MemoryLimitMB: 64, CPUShares: 100})
	require.Equal(t, int64(64*1024*1024), hostCfg.Resources.Memory)
	require.Equal(t, int64(100), hostCfg.Resources.CPUShares)
	require.Equal(t, "bridge", string(hostCfg.NetworkMode))
	require.Empty(t, hostCfg.Mounts)
}
