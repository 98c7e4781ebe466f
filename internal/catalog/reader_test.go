package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/internal/layout"
	"github.com/aelpxy/dockup/internal/logging"
	"github.com/aelpxy/dockup/internal/remote"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMeta(t *testing.T, root, project, dir string, data []byte) {
	t.Helper()
	full := filepath.Join(root, project, dir)
	require.NoError(t, os.MkdirAll(full, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(full, constants.MetadataFile), data, 0644))
}

func writeRecord(t *testing.T, root string, record models.BackupRecord) {
	t.Helper()
	data, err := record.Marshal()
	require.NoError(t, err)
	writeMeta(t, root, record.Name, constants.FormatTimestamp(record.Timestamp), data)
}

func readInventory(t *testing.T, root string) *Inventory {
	t.Helper()
	reader := NewReader(remote.NewLocalStore(), root, logging.Discard())
	inv, err := reader.Read(context.Background())
	require.NoError(t, err)
	return inv
}

func TestRead_BuildsSortedInventory(t *testing.T) {
	root := t.TempDir()
	older := time.Date(2025, 1, 1, 3, 0, 0, 0, time.Local)
	newer := time.Date(2025, 2, 1, 3, 0, 0, 0, time.Local)

	writeRecord(t, root, models.BackupRecord{Name: "blog", Timestamp: older, Kind: models.BackupKindScheduled, Volumes: []models.Volume{}})
	writeRecord(t, root, models.BackupRecord{Name: "blog", Timestamp: newer, Kind: models.BackupKindManual, Volumes: []models.Volume{}})
	writeRecord(t, root, models.BackupRecord{Name: "my.shop", Timestamp: older, Volumes: []models.Volume{
		{Name: "db", Path: "myshop_db", Kind: models.VolumeKindNamed},
	}})
	require.NoError(t, os.WriteFile(filepath.Join(root, constants.ConfigUploadAs), []byte("x"), 0644))

	inv := readInventory(t, root)

	require.Equal(t, 3, inv.Len())
	assert.True(t, inv.All()[0].Timestamp.Equal(newer))
	assert.Equal(t, []string{"blog", "my.shop"}, inv.Projects())

	blog := inv.Backups("blog")
	require.Len(t, blog, 2)
	assert.True(t, blog[0].Timestamp.After(blog[1].Timestamp))
	assert.Equal(t, constants.FormatTimestamp(newer), blog[0].Directory)

	latest, ok := inv.Latest("blog")
	require.True(t, ok)
	assert.Equal(t, models.BackupKindManual, latest.Kind)

	found, ok := inv.Find("my.shop", constants.FormatTimestamp(older))
	require.True(t, ok)
	assert.Equal(t, "myshop_db", found.Volumes[0].Path)

	_, ok = inv.Find("blog", "1999_01_01_000000")
	assert.False(t, ok)
	_, ok = inv.Latest("ghost")
	assert.False(t, ok)
}

func TestRead_SkipsBrokenBackups(t *testing.T) {
	root := t.TempDir()
	good := time.Date(2025, 1, 1, 3, 0, 0, 0, time.Local)

	writeRecord(t, root, models.BackupRecord{Name: "blog", Timestamp: good})
	writeMeta(t, root, "blog", "2025_01_02_030000", []byte("{not json"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog", "2025_01_03_030000"), 0755))
	writeMeta(t, root, "blog", "garbage-name", []byte(`{"name":"blog"}`))

	inv := readInventory(t, root)

	require.Equal(t, 1, inv.Len())
	assert.True(t, inv.All()[0].Timestamp.Equal(good))
}

func TestRead_EpochTimestampFallsBackToDirectoryName(t *testing.T) {
	root := t.TempDir()
	dirName := "2025_03_14_150926"
	writeMeta(t, root, "blog", dirName, []byte(`{
		"name": "blog",
		"timestamp": "1970-01-01T00:00:00Z",
		"backup_type": "Manual",
		"application_path": "/srv/blog",
		"volumes": []
	}`))

	inv := readInventory(t, root)
	require.Equal(t, 1, inv.Len())

	want, err := constants.ParseTimestamp(dirName)
	require.NoError(t, err)
	record := inv.All()[0]
	assert.True(t, record.Timestamp.Equal(want))
	assert.Equal(t, dirName, layout.DirName(record))
}

func TestRead_ShortDirectoryNameKeepsPath(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "blog", "2024_06_01_0300", []byte(`{"name":"blog"}`))

	inv := readInventory(t, root)
	require.Equal(t, 1, inv.Len())

	record := inv.All()[0]
	assert.Equal(t, 3, record.Timestamp.Hour())
	assert.Equal(t, filepath.Join(root, "blog", "2024_06_01_0300", "meta.json"), layout.ForRecord(root, record).Metadata())
}

func TestRead_MissingNameUsesProjectDirectory(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "legacy", "2024_06_01_030000", []byte(`{"timestamp":"2024-06-01T03:00:00Z"}`))

	inv := readInventory(t, root)
	require.Equal(t, 1, inv.Len())
	assert.Equal(t, "legacy", inv.All()[0].Name)
}

func TestRead_RootUnreadableIsFatal(t *testing.T) {
	reader := NewReader(remote.NewLocalStore(), filepath.Join(t.TempDir(), "missing"), logging.Discard())
	_, err := reader.Read(context.Background())
	assert.Error(t, err)
}

func TestRead_EmptyRoot(t *testing.T) {
	inv := readInventory(t, t.TempDir())
	assert.Equal(t, 0, inv.Len())
	assert.Empty(t, inv.Projects())
}
