package archive

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestCreateAndExtract(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "docker-compose.yml"), "services: {}\n")
	writeFile(t, filepath.Join(src, "data", "db.sqlite"), "rows")
	writeFile(t, filepath.Join(src, ".env"), "SECRET=1")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "empty"), 0755))
	require.NoError(t, os.Symlink("data/db.sqlite", filepath.Join(src, "current")))

	archivePath := filepath.Join(t.TempDir(), "repo.tar.gz")
	size, err := Create(context.Background(), src, archivePath)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))

	dst := filepath.Join(t.TempDir(), "restored")
	require.NoError(t, Extract(context.Background(), archivePath, dst))

	data, err := os.ReadFile(filepath.Join(dst, "data", "db.sqlite"))
	require.NoError(t, err)
	assert.Equal(t, "rows", string(data))

	env, err := os.ReadFile(filepath.Join(dst, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "SECRET=1", string(env))

	assert.DirExists(t, filepath.Join(dst, "empty"))

	link, err := os.Readlink(filepath.Join(dst, "current"))
	require.NoError(t, err)
	assert.Equal(t, "data/db.sqlite", link)
}

func TestCreateRejectsMissingSource(t *testing.T) {
	_, err := Create(context.Background(), filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "x.tar.gz"))
	assert.Error(t, err)
}

func TestCreateRejectsFileSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "nginx.conf")
	writeFile(t, src, "server {}")

	_, err := Create(context.Background(), src, filepath.Join(t.TempDir(), "x.tar.gz"))
	assert.Error(t, err)
}

func TestCreateHonorsCancelledContext(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Create(ctx, src, filepath.Join(t.TempDir(), "x.tar.gz"))
	assert.ErrorIs(t, err, context.Canceled)
}

func writeRawArchive(t *testing.T, headers []*tar.Header, bodies []string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "raw.tar.gz")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for i, h := range headers {
		require.NoError(t, tw.WriteHeader(h))
		if bodies[i] != "" {
			_, err := tw.Write([]byte(bodies[i]))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return p
}

func TestExtractRejectsTraversal(t *testing.T) {
	archivePath := writeRawArchive(t,
		[]*tar.Header{{Name: "../../evil.txt", Mode: 0644, Size: 4, Typeflag: tar.TypeReg}},
		[]string{"evil"},
	)

	parent := t.TempDir()
	dst := filepath.Join(parent, "dst")
	assert.Error(t, Extract(context.Background(), archivePath, dst))

	assert.NoFileExists(t, filepath.Join(parent, "evil.txt"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(parent), "evil.txt"))
}

func TestCreateSkipsArchiveInsideSource(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "app.yml"), "services: {}\n")
	archivePath := filepath.Join(src, "out", "self.tar.gz")

	_, err := Create(context.Background(), src, archivePath)
	require.NoError(t, err)

	dst := t.TempDir()
	require.NoError(t, Extract(context.Background(), archivePath, dst))
	assert.FileExists(t, filepath.Join(dst, "app.yml"))
	assert.NoFileExists(t, filepath.Join(dst, "out", "self.tar.gz"))
}

func TestExtractRejectsEscapingSymlink(t *testing.T) {
	archivePath := writeRawArchive(t,
		[]*tar.Header{{Name: "link", Linkname: "../../../etc/passwd", Typeflag: tar.TypeSymlink, Mode: 0777}},
		[]string{""},
	)

	err := Extract(context.Background(), archivePath, t.TempDir())
	assert.Error(t, err)
}

func TestExtractRejectsGarbage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.tar.gz")
	writeFile(t, p, "definitely not gzip")

	assert.Error(t, Extract(context.Background(), p, t.TempDir()))
}
