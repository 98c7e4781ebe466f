// Package archive writes and reads the gzip-compressed tarballs that carry
// application trees and bind volumes to the remote store.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	dockerarchive "github.com/docker/docker/pkg/archive"
	"github.com/klauspost/compress/gzip"
)

// Local archives host directories in-process.
type Local struct{}

func (Local) Archive(ctx context.Context, src, dst string) (int64, error) {
	return Create(ctx, src, dst)
}

func (Local) Extract(ctx context.Context, archivePath, dst string) error {
	return Extract(ctx, archivePath, dst)
}

// Create packs the contents of src into a tar.gz at dst, with entry names
// relative to src. It returns the size of the written archive.
func Create(ctx context.Context, src, dst string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("failed to archive %s: %w", src, err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("failed to stat source: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("source %s is not a directory", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	var exclusions []string
	// the archive itself may live under src
	if rel, err := filepath.Rel(src, dst); err == nil && !strings.HasPrefix(rel, "..") {
		exclusions = append(exclusions, filepath.ToSlash(rel))
	}

	stream, err := dockerarchive.TarWithOptions(src, &dockerarchive.TarOptions{
		ExcludePatterns: exclusions,
		Compression:     dockerarchive.Uncompressed,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to archive %s: %w", src, err)
	}
	defer stream.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	gzWriter := gzip.NewWriter(out)
	if _, err := io.Copy(gzWriter, &ctxReader{ctx: ctx, r: stream}); err != nil {
		return 0, fmt.Errorf("failed to archive %s: %w", src, err)
	}
	if err := gzWriter.Close(); err != nil {
		return 0, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to close archive file: %w", err)
	}

	stat, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to stat archive: %w", err)
	}
	return stat.Size(), nil
}

// Extract unpacks a tar.gz into dst. Entries that would land outside dst are
// rejected. Ownership is only restored when running as root.
func Extract(ctx context.Context, archivePath, dst string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	root, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("failed to resolve destination: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	err = dockerarchive.UntarUncompressed(&ctxReader{ctx: ctx, r: gzReader}, root, &dockerarchive.TarOptions{
		NoLchown: os.Geteuid() != 0,
	})
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", archivePath, err)
	}
	return nil
}

// ctxReader stops a stream once ctx is done. Callers that must not be
// interrupted hand in a detached context carrying only a deadline.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
