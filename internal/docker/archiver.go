package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types/mount"
)

const (
	volumeMountPoint = "/volume-data"
	backupMountPoint = "/backup"
)

// HelperRunner is the slice of the runtime client the volume archiver needs.
type HelperRunner interface {
	RunHelper(ctx context.Context, spec HelperSpec) error
	VolumeExists(ctx context.Context, volumeName string) (bool, error)
	EnsureVolume(ctx context.Context, volumeName string) error
}

// VolumeArchiver moves named volume contents in and out of tar.gz files by
// mounting the volume into a helper container, since the host cannot read
// the volume's backing store directly.
type VolumeArchiver struct {
	runner HelperRunner
	image  string
}

func NewVolumeArchiver(runner HelperRunner, helperImage string) *VolumeArchiver {
	return &VolumeArchiver{runner: runner, image: helperImage}
}

// Archive writes the contents of volumeName to dst and returns the archive
// size.
func (va *VolumeArchiver) Archive(ctx context.Context, volumeName, dst string) (int64, error) {
	exists, err := va.runner.VolumeExists(ctx, volumeName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect volume %s: %w", volumeName, err)
	}
	if !exists {
		return 0, fmt.Errorf("volume %s not found", volumeName)
	}

	backupDir, err := filepath.Abs(filepath.Dir(dst))
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	backupFile := filepath.Base(dst)

	spec := HelperSpec{
		Image: va.image,
		Cmd: []string{
			"sh", "-c",
			fmt.Sprintf("tar czf %s/%s -C %s .", backupMountPoint, backupFile, volumeMountPoint),
		},
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeVolume,
				Source:   volumeName,
				Target:   volumeMountPoint,
				ReadOnly: true,
			},
			{
				Type:   mount.TypeBind,
				Source: backupDir,
				Target: backupMountPoint,
			},
		},
		Labels: map[string]string{"dockup.volume": volumeName, "dockup.op": "archive"},
	}

	if err := va.runner.RunHelper(ctx, spec); err != nil {
		return 0, fmt.Errorf("volume archive failed: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to stat volume archive: %w", err)
	}
	return info.Size(), nil
}

// Restore empties volumeName and unpacks archivePath into it.
func (va *VolumeArchiver) Restore(ctx context.Context, volumeName, archivePath string) error {
	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("archive not found: %w", err)
	}

	if err := va.runner.EnsureVolume(ctx, volumeName); err != nil {
		return err
	}

	backupDir, err := filepath.Abs(filepath.Dir(archivePath))
	if err != nil {
		return err
	}
	backupFile := filepath.Base(archivePath)

	spec := HelperSpec{
		Image: va.image,
		Cmd: []string{
			"sh", "-c",
			fmt.Sprintf("rm -rf %[1]s/* %[1]s/..?* %[1]s/.[!.]* 2>/dev/null || true && tar xzf %[2]s/%[3]s -C %[1]s",
				volumeMountPoint, backupMountPoint, backupFile),
		},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeVolume,
				Source: volumeName,
				Target: volumeMountPoint,
			},
			{
				Type:     mount.TypeBind,
				Source:   backupDir,
				Target:   backupMountPoint,
				ReadOnly: true,
			},
		},
		Labels: map[string]string{"dockup.volume": volumeName, "dockup.op": "restore"},
	}

	if err := va.runner.RunHelper(ctx, spec); err != nil {
		return fmt.Errorf("volume restore failed: %w", err)
	}
	return nil
}
