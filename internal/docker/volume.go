package docker

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/volume"
)

func (c *Client) VolumeExists(ctx context.Context, volumeName string) (bool, error) {
	_, err := c.cli.VolumeInspect(ctx, volumeName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnsureVolume creates volumeName when a restore targets a volume that
// was removed since the backup.
func (c *Client) EnsureVolume(ctx context.Context, volumeName string) error {
	exists, err := c.VolumeExists(ctx, volumeName)
	if err != nil {
		return fmt.Errorf("failed to inspect volume %s: %w", volumeName, err)
	}
	if exists {
		return nil
	}

	_, err = c.cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:   volumeName,
		Driver: "local",
		Labels: map[string]string{"dockup.restored": "true"},
	})
	if err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}
	return nil
}
