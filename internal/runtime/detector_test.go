package runtime

import (
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubEnv(t *testing.T, existing map[string]bool, env map[string]string, uid int) {
	t.Helper()
	oldStat, oldEnv, oldUID := statFn, getenvFn, getuidFn
	t.Cleanup(func() {
		statFn, getenvFn, getuidFn = oldStat, oldEnv, oldUID
	})

	statFn = func(name string) (os.FileInfo, error) {
		if existing[name] {
			return nil, nil
		}
		return nil, fs.ErrNotExist
	}
	getenvFn = func(key string) string { return env[key] }
	getuidFn = func() int { return uid }
}

func TestDetectRuntime_Override(t *testing.T) {
	stubEnv(t, nil, map[string]string{"DOCKER_HOST": "tcp://elsewhere:2375"}, 1000)

	info, err := DetectRuntime("unix:///srv/run/podman/podman.sock")
	require.NoError(t, err)
	assert.Equal(t, RuntimePodman, info.Type)
	assert.Equal(t, "/srv/run/podman/podman.sock", info.SocketPath)
	assert.Equal(t, "unix:///srv/run/podman/podman.sock", info.Host)
}

func TestDetectRuntime_DockerHost(t *testing.T) {
	stubEnv(t, nil, map[string]string{"DOCKER_HOST": "tcp://10.0.0.5:2376"}, 0)

	info, err := DetectRuntime("")
	require.NoError(t, err)
	assert.Equal(t, RuntimeDocker, info.Type)
	assert.Equal(t, "tcp://10.0.0.5:2376", info.Host)
	assert.Empty(t, info.SocketPath)
	assert.NoError(t, info.EnsureSocketExists())
}

func TestDetectRuntime_PrefersDockerSocket(t *testing.T) {
	stubEnv(t, map[string]bool{"/var/run/docker.sock": true, "/run/podman/podman.sock": true}, nil, 0)

	info, err := DetectRuntime("")
	require.NoError(t, err)
	assert.Equal(t, RuntimeDocker, info.Type)
	assert.Equal(t, "docker", info.GetRuntimeName())
}

func TestDetectRuntime_RootlessPodman(t *testing.T) {
	stubEnv(t, map[string]bool{"/run/user/1000/podman/podman.sock": true}, nil, 1000)

	info, err := DetectRuntime("")
	require.NoError(t, err)
	assert.Equal(t, RuntimePodman, info.Type)
	assert.True(t, info.IsRootless)
	assert.Equal(t, "podman (rootless)", info.GetRuntimeName())
}

func TestDetectRuntime_Nothing(t *testing.T) {
	stubEnv(t, nil, nil, 0)

	_, err := DetectRuntime("")
	assert.Error(t, err)
}
