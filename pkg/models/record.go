package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type BackupKind string

const (
	BackupKindManual    BackupKind = "Manual"
	BackupKindScheduled BackupKind = "Scheduled"
)

func (k BackupKind) Valid() bool {
	return k == BackupKindManual || k == BackupKindScheduled
}

// BackupRecord is the metadata file written next to every backup instance.
// Readers must keep accepting records written by older versions, so every
// field decodes to a usable default when it is missing.
type BackupRecord struct {
	Name            string     `json:"name"`
	Timestamp       time.Time  `json:"timestamp"`
	Kind            BackupKind `json:"backup_type"`
	ApplicationPath string     `json:"application_path"`
	Volumes         []Volume   `json:"volumes"`

	// Directory is the backup directory name the record was read from. It
	// is set by the catalog reader and never serialized.
	Directory string `json:"-"`
}

func NewBackupRecord(app Application, timestamp time.Time, kind BackupKind) BackupRecord {
	volumes := make([]Volume, len(app.Volumes))
	copy(volumes, app.Volumes)

	if !kind.Valid() {
		kind = BackupKindManual
	}

	return BackupRecord{
		Name:            app.Name,
		Timestamp:       timestamp,
		Kind:            kind,
		ApplicationPath: app.Path,
		Volumes:         volumes,
	}
}

// HasDegenerateTimestamp reports whether the stored timestamp is unusable and
// the backup directory name has to be consulted instead.
func (r BackupRecord) HasDegenerateTimestamp() bool {
	return r.Timestamp.IsZero() || r.Timestamp.Unix() == 0
}

func (r BackupRecord) Volume(name string) (Volume, bool) {
	for _, v := range r.Volumes {
		if v.Name == name {
			return v, true
		}
	}
	return Volume{}, false
}

func (r BackupRecord) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func ParseBackupRecord(data []byte) (BackupRecord, error) {
	var record BackupRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return BackupRecord{}, fmt.Errorf("failed to parse backup record: %w", err)
	}
	return record, nil
}

func (r *BackupRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name            string      `json:"name"`
		Timestamp       *string     `json:"timestamp"`
		Kind            *BackupKind `json:"backup_type"`
		ApplicationPath string      `json:"application_path"`
		Volumes         []Volume    `json:"volumes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	record := BackupRecord{
		Name:            raw.Name,
		Kind:            BackupKindManual,
		ApplicationPath: raw.ApplicationPath,
		Volumes:         raw.Volumes,
	}

	// an unparseable timestamp is treated like a missing one
	if raw.Timestamp != nil {
		if ts, err := time.Parse(time.RFC3339Nano, *raw.Timestamp); err == nil {
			record.Timestamp = ts
		}
	}

	if raw.Kind != nil && raw.Kind.Valid() {
		record.Kind = *raw.Kind
	}

	if record.Volumes == nil {
		record.Volumes = []Volume{}
	}
	for i := range record.Volumes {
		if record.Volumes[i].Kind == "" {
			record.Volumes[i].Kind = ClassifyMount(record.Volumes[i].Name)
		}
	}

	*r = record
	return nil
}
