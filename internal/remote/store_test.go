package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aelpxy/dockup/internal/failure"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMkdirCommandQuotes(t *testing.T) {
	cmd := mkdirCommand([]string{"/backups/blog/2025_01_01_000000/REPO", "/backups/it's/VOLUMES"})
	assert.Equal(t, `mkdir -p '/backups/blog/2025_01_01_000000/REPO' '/backups/it'\''s/VOLUMES'`, cmd)
}

func TestLocalStore_ListUsesFileModes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "v1.2"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))

	store := NewLocalStore()
	entries, err := store.List(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Name: "README", IsDir: false},
		{Name: "blog", IsDir: true},
		{Name: "notes.txt", IsDir: false},
		{Name: "v1.2", IsDir: true},
	}, entries)
	assert.Equal(t, []string{"blog", "v1.2"}, Dirs(entries))
}

func TestLocalStore_ListMissingDir(t *testing.T) {
	_, err := NewLocalStore().List(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.RemoteCommand))
}

func TestLocalStore_TransferRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()
	remoteRoot := t.TempDir()

	dirs := []string{filepath.Join(remoteRoot, "blog", "ts", "REPO"), filepath.Join(remoteRoot, "blog", "ts", "VOLUMES")}
	require.NoError(t, store.MkdirAll(ctx, dirs...))
	for _, d := range dirs {
		assert.DirExists(t, d)
	}

	local := filepath.Join(t.TempDir(), "repo.tar.gz")
	require.NoError(t, os.WriteFile(local, []byte("payload"), 0644))

	remotePath := filepath.Join(dirs[0], "repo.tar.gz")
	size, err := store.Upload(ctx, local, remotePath)
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), size)

	back := filepath.Join(t.TempDir(), "scratch", "repo.tar.gz")
	require.NoError(t, store.Download(ctx, remotePath, back))
	data, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	meta := filepath.Join(remoteRoot, "blog", "ts", "meta.json")
	require.NoError(t, store.WriteFile(ctx, meta, []byte(`{}`)))
	read, err := store.ReadFile(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(read))
}

func TestLocalStore_UploadMissingSource(t *testing.T) {
	_, err := NewLocalStore().Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "dst"))
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Transfer))
}

func TestOpen(t *testing.T) {
	logger := log.New(os.Stderr)

	store, err := Open(models.GlobalConfig{SSH: models.SSHConfig{Transport: models.TransportLocal}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = Open(models.GlobalConfig{SSH: models.SSHConfig{Transport: models.TransportSSH}}, logger)
	assert.Error(t, err)

	store, err = Open(models.GlobalConfig{SSH: models.SSHConfig{Transport: models.TransportSSH, Host: "nas", User: "backup"}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SSHStore{}, store)

	_, err = Open(models.GlobalConfig{SSH: models.SSHConfig{Transport: "ftp"}}, logger)
	assert.Error(t, err)
}
