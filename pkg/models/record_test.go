package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRecord_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

	cases := []struct {
		name   string
		record BackupRecord
	}{
		{
			name: "bind and named volumes",
			record: BackupRecord{
				Name:            "blog",
				Timestamp:       ts,
				Kind:            BackupKindScheduled,
				ApplicationPath: "/srv/apps/blog",
				Volumes: []Volume{
					{Name: "./data", Path: "/srv/apps/blog/data", Kind: VolumeKindBind},
					{Name: "cache", Path: "blog_cache", Kind: VolumeKindNamed},
				},
			},
		},
		{
			name: "empty volume list",
			record: BackupRecord{
				Name:            "static",
				Timestamp:       ts,
				Kind:            BackupKindManual,
				ApplicationPath: "/srv/apps/static",
				Volumes:         []Volume{},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := tc.record.Marshal()
			require.NoError(t, err)

			parsed, err := ParseBackupRecord(data)
			require.NoError(t, err)

			assert.Equal(t, tc.record.Name, parsed.Name)
			assert.True(t, tc.record.Timestamp.Equal(parsed.Timestamp))
			assert.Equal(t, tc.record.Kind, parsed.Kind)
			assert.Equal(t, tc.record.ApplicationPath, parsed.ApplicationPath)
			assert.Equal(t, tc.record.Volumes, parsed.Volumes)
		})
	}
}

func TestParseBackupRecord_Defaults(t *testing.T) {
	parsed, err := ParseBackupRecord([]byte(`{
		"name": "legacy",
		"application_path": "/srv/legacy",
		"volumes": [{"name": "./data", "path": "/srv/legacy/data"}, {"name": "db", "path": "db"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, BackupKindManual, parsed.Kind)
	assert.True(t, parsed.HasDegenerateTimestamp())
	assert.Equal(t, VolumeKindBind, parsed.Volumes[0].Kind)
	assert.Equal(t, VolumeKindNamed, parsed.Volumes[1].Kind)
}

func TestParseBackupRecord_TolerantFields(t *testing.T) {
	parsed, err := ParseBackupRecord([]byte(`{
		"name": "app",
		"timestamp": "not a time",
		"backup_type": "Hourly",
		"volumes": null,
		"unknown_field": 42
	}`))
	require.NoError(t, err)

	assert.True(t, parsed.HasDegenerateTimestamp())
	assert.Equal(t, BackupKindManual, parsed.Kind)
	assert.NotNil(t, parsed.Volumes)
	assert.Empty(t, parsed.Volumes)
}

func TestParseBackupRecord_AcceptsOffsetTimestamps(t *testing.T) {
	parsed, err := ParseBackupRecord([]byte(`{"name":"app","timestamp":"2025-05-01T12:00:00.123456789+02:00","backup_type":"Scheduled"}`))
	require.NoError(t, err)

	assert.False(t, parsed.HasDegenerateTimestamp())
	assert.Equal(t, BackupKindScheduled, parsed.Kind)
	assert.Equal(t, 10, parsed.Timestamp.UTC().Hour())
}

func TestParseBackupRecord_InvalidJSON(t *testing.T) {
	_, err := ParseBackupRecord([]byte(`{"name":`))
	assert.Error(t, err)
}

func TestBackupRecord_EpochIsDegenerate(t *testing.T) {
	record := BackupRecord{Timestamp: time.Unix(0, 0)}
	assert.True(t, record.HasDegenerateTimestamp())
}

func TestNewBackupRecord_CopiesVolumes(t *testing.T) {
	app := Application{
		Name:    "blog",
		Path:    "/srv/blog",
		Volumes: []Volume{{Name: "cache", Path: "blog_cache", Kind: VolumeKindNamed}},
	}
	record := NewBackupRecord(app, time.Now(), "")

	app.Volumes[0].Name = "mutated"
	assert.Equal(t, "cache", record.Volumes[0].Name)
	assert.Equal(t, BackupKindManual, record.Kind)

	vol, ok := record.Volume("cache")
	assert.True(t, ok)
	assert.Equal(t, "blog_cache", vol.Path)
}

func TestClassifyMount(t *testing.T) {
	assert.Equal(t, VolumeKindBind, ClassifyMount("/srv/data"))
	assert.Equal(t, VolumeKindBind, ClassifyMount("./data"))
	assert.Equal(t, VolumeKindBind, ClassifyMount("../shared"))
	assert.Equal(t, VolumeKindBind, ClassifyMount("~/backups"))
	assert.Equal(t, VolumeKindNamed, ClassifyMount("cache"))
	assert.Equal(t, VolumeKindNamed, ClassifyMount("db_data"))
}
