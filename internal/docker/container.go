package docker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
)

type PullProgress struct {
	Status         string `json:"status"`
	ProgressDetail struct {
		Current int64 `json:"current"`
		Total   int64 `json:"total"`
	} `json:"progressDetail"`
	Progress string `json:"progress"`
	ID       string `json:"id"`
}

// HelperSpec describes a short-lived container that runs one shell command
// against mounted volumes and exits.
type HelperSpec struct {
	Image  string
	Cmd    []string
	Mounts []mount.Mount
	Labels map[string]string
}

func (c *Client) PullImage(ctx context.Context, imageName string, progressWriter io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, ImagePullTimeout)
	defer cancel()

	reader, err := c.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	var lastStatus string

	for scanner.Scan() {
		var progress PullProgress
		if err := json.Unmarshal(scanner.Bytes(), &progress); err != nil {
			continue
		}

		if progress.Status != lastStatus && progress.ID == "" {
			if progressWriter != nil {
				statusMsg := progress.Status
				if strings.Contains(statusMsg, "Digest:") || strings.Contains(statusMsg, "Status:") {
					continue // skip
				}
				fmt.Fprintf(progressWriter, "  %s\n", statusMsg)
			}
			lastStatus = progress.Status
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read pull output: %w", err)
	}

	return nil
}

// EnsureImage pulls imageName only when the daemon does not have it yet.
func (c *Client) EnsureImage(ctx context.Context, imageName string, progressWriter io.Writer) error {
	_, _, err := c.cli.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", imageName, err)
	}
	return c.PullImage(ctx, imageName, progressWriter)
}

// RunHelper creates, starts and waits for a helper container, then removes
// it. A non-zero exit is reported with the container's stderr.
func (c *Client) RunHelper(ctx context.Context, spec HelperSpec) error {
	if err := c.EnsureImage(ctx, spec.Image, nil); err != nil {
		return err
	}

	labels := map[string]string{"dockup.helper": "true"}
	for k, v := range spec.Labels {
		labels[k] = v
	}

	config := &container.Config{
		Image:  spec.Image,
		Cmd:    spec.Cmd,
		Labels: labels,
	}
	hostConfig := &container.HostConfig{
		Mounts: spec.Mounts,
	}

	resp, err := c.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return fmt.Errorf("failed to create helper container: %w", err)
	}
	defer c.removeContainer(resp.ID)

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start helper container: %w", err)
	}

	statusCh, errCh := c.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error waiting for helper container: %w", err)
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			stderr := c.containerStderr(resp.ID)
			if stderr != "" {
				return fmt.Errorf("helper container exited with code %d: %s", status.StatusCode, stderr)
			}
			return fmt.Errorf("helper container exited with code %d", status.StatusCode)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (c *Client) containerStderr(containerID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), ContainerOpTimeout)
	defer cancel()

	logs, err := c.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStderr: true})
	if err != nil {
		return ""
	}
	defer logs.Close()

	var stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(io.Discard, &stderr, logs); err != nil {
		return ""
	}
	return strings.TrimSpace(stderr.String())
}

// removal runs on its own context so a cancelled run still cleans up
func (c *Client) removeContainer(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), ContainerOpTimeout)
	defer cancel()

	_ = c.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: false,
	})
}
