package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aelpxy/dockup/internal/failure"
)

// LocalStore keeps backups on a filesystem path of this host, typically a
// mounted network share.
type LocalStore struct{}

func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

func (s *LocalStore) MkdirAll(ctx context.Context, dirs ...string) error {
	if err := ctx.Err(); err != nil {
		return failure.Wrap(failure.RemoteCommand, "create directories", strings.Join(dirs, " "), err)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return failure.Wrap(failure.RemoteCommand, "create directories", d, err)
		}
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context, dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, failure.Wrap(failure.RemoteCommand, "list", dir, err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		isDir := item.IsDir()
		if item.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, item.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		entries = append(entries, Entry{Name: item.Name(), IsDir: isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *LocalStore) ReadFile(ctx context.Context, p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, failure.Wrap(failure.Transfer, "read", p, err)
	}
	return data, nil
}

func (s *LocalStore) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return failure.Wrap(failure.Transfer, "write", p, err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return failure.Wrap(failure.Transfer, "write", p, err)
	}
	return nil
}

func (s *LocalStore) Upload(ctx context.Context, local, p string) (int64, error) {
	if err := copyFile(ctx, local, p); err != nil {
		return 0, failure.Wrap(failure.Transfer, "upload", p, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, failure.Wrap(failure.Transfer, "upload", p, err)
	}
	return info.Size(), nil
}

func (s *LocalStore) Download(ctx context.Context, p, local string) error {
	if err := copyFile(ctx, p, local); err != nil {
		return failure.Wrap(failure.Transfer, "download", p, err)
	}
	return nil
}

func (s *LocalStore) Close() error {
	return nil
}

func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
