package runtime

import (
	"fmt"
	"os"
	"strings"
)

type RuntimeType string

const (
	RuntimeDocker RuntimeType = "docker"
	RuntimePodman RuntimeType = "podman"
)

type RuntimeInfo struct {
	Type       RuntimeType
	SocketPath string
	Host       string
	IsRootless bool
}

var (
	statFn   = os.Stat
	getuidFn = os.Getuid
	getenvFn = os.Getenv
)

// DetectRuntime picks the container runtime endpoint. An explicit socket
// from configuration wins, then DOCKER_HOST, then the well-known docker and
// podman socket locations.
func DetectRuntime(socketOverride string) (*RuntimeInfo, error) {
	if socketOverride != "" {
		return fromSocket(strings.TrimPrefix(socketOverride, "unix://")), nil
	}

	if dockerHost := getenvFn("DOCKER_HOST"); dockerHost != "" {
		info := &RuntimeInfo{Type: RuntimeDocker, Host: dockerHost}
		if strings.Contains(dockerHost, "podman") {
			info.Type = RuntimePodman
			info.IsRootless = getuidFn() != 0
		}
		if strings.HasPrefix(dockerHost, "unix://") {
			info.SocketPath = strings.TrimPrefix(dockerHost, "unix://")
		}
		return info, nil
	}

	candidates := []string{"/var/run/docker.sock", PodmanSocketPath()}
	for _, socketPath := range candidates {
		if _, err := statFn(socketPath); err == nil {
			return fromSocket(socketPath), nil
		}
	}

	return nil, fmt.Errorf("no container runtime detected (tried %s)", strings.Join(candidates, ", "))
}

func fromSocket(socketPath string) *RuntimeInfo {
	info := &RuntimeInfo{
		Type:       RuntimeDocker,
		SocketPath: socketPath,
		Host:       "unix://" + socketPath,
	}
	if strings.Contains(socketPath, "podman") {
		info.Type = RuntimePodman
		info.IsRootless = strings.HasPrefix(socketPath, "/run/user/")
	}
	return info
}

func (r *RuntimeInfo) GetRuntimeName() string {
	name := string(r.Type)
	if r.Type == RuntimePodman && r.IsRootless {
		name += " (rootless)"
	}
	return name
}

// EnsureSocketExists only checks local unix sockets; tcp hosts are left to
// the client to dial.
func (r *RuntimeInfo) EnsureSocketExists() error {
	if r.SocketPath == "" {
		return nil
	}
	if _, err := statFn(r.SocketPath); err != nil {
		if r.Type == RuntimePodman {
			return fmt.Errorf("podman socket not found at %s - run 'systemctl --user start podman.socket'", r.SocketPath)
		}
		return fmt.Errorf("runtime socket not found at %s", r.SocketPath)
	}
	return nil
}

func PodmanSocketPath() string {
	if uid := getuidFn(); uid != 0 {
		return fmt.Sprintf("/run/user/%d/podman/podman.sock", uid)
	}
	return "/run/podman/podman.sock"
}
