// Package catalog rebuilds the inventory of past backups from the metadata
// records stored next to the archives.
package catalog

import (
	"context"
	"path"
	"sort"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/internal/failure"
	"github.com/aelpxy/dockup/internal/layout"
	"github.com/aelpxy/dockup/internal/remote"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/charmbracelet/log"
)

type Reader struct {
	store  remote.Store
	root   string
	logger *log.Logger
}

func NewReader(store remote.Store, root string, logger *log.Logger) *Reader {
	return &Reader{store: store, root: root, logger: logger}
}

// Read walks <root>/<project>/<timestamp>/meta.json. Only a failure to list
// the root itself is returned; unreadable projects and backups are skipped.
func (r *Reader) Read(ctx context.Context) (*Inventory, error) {
	entries, err := r.store.List(ctx, r.root)
	if err != nil {
		return nil, err
	}

	var records []models.BackupRecord
	for _, project := range remote.Dirs(entries) {
		projectDir := path.Join(r.root, project)

		children, err := r.store.List(ctx, projectDir)
		if err != nil {
			r.logger.Warn("skipping unreadable project directory", "dir", projectDir, "err", err)
			continue
		}

		for _, dirName := range remote.Dirs(children) {
			record, err := r.readRecord(ctx, path.Join(projectDir, dirName), dirName)
			if err != nil {
				r.logger.Warn("skipping backup", "dir", path.Join(projectDir, dirName), "err", err)
				continue
			}
			records = append(records, record)
		}
	}

	return NewInventory(records), nil
}

func (r *Reader) readRecord(ctx context.Context, dir, dirName string) (models.BackupRecord, error) {
	metaPath := path.Join(dir, constants.MetadataFile)

	data, err := r.store.ReadFile(ctx, metaPath)
	if err != nil {
		return models.BackupRecord{}, err
	}

	record, err := models.ParseBackupRecord(data)
	if err != nil {
		return models.BackupRecord{}, failure.Wrap(failure.Metadata, "parse backup record", metaPath, err)
	}

	if record.HasDegenerateTimestamp() {
		ts, err := constants.ParseTimestamp(dirName)
		if err != nil {
			return models.BackupRecord{}, failure.Wrap(failure.Metadata, "recover timestamp from directory name", dir, err)
		}
		record.Timestamp = ts
	}

	if record.Name == "" {
		record.Name = path.Base(path.Dir(dir))
	}
	record.Directory = dirName
	return record, nil
}

// Inventory is a flat list of backups, newest first. Groupings are derived
// on demand.
type Inventory struct {
	records []models.BackupRecord
}

func NewInventory(records []models.BackupRecord) *Inventory {
	sorted := append([]models.BackupRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		}
		return sorted[i].Name < sorted[j].Name
	})
	return &Inventory{records: sorted}
}

func (inv *Inventory) All() []models.BackupRecord {
	return inv.records
}

func (inv *Inventory) Len() int {
	return len(inv.records)
}

// Projects returns project names in alphabetical order.
func (inv *Inventory) Projects() []string {
	seen := make(map[string]bool)
	var projects []string
	for _, rec := range inv.records {
		if !seen[rec.Name] {
			seen[rec.Name] = true
			projects = append(projects, rec.Name)
		}
	}
	sort.Strings(projects)
	return projects
}

// Backups returns one project's backups, newest first.
func (inv *Inventory) Backups(project string) []models.BackupRecord {
	var out []models.BackupRecord
	for _, rec := range inv.records {
		if rec.Name == project {
			out = append(out, rec)
		}
	}
	return out
}

func (inv *Inventory) Latest(project string) (models.BackupRecord, bool) {
	backups := inv.Backups(project)
	if len(backups) == 0 {
		return models.BackupRecord{}, false
	}
	return backups[0], true
}

// Find matches a backup by its directory timestamp.
func (inv *Inventory) Find(project, timestamp string) (models.BackupRecord, bool) {
	for _, rec := range inv.Backups(project) {
		if layout.DirName(rec) == timestamp {
			return rec, true
		}
	}
	return models.BackupRecord{}, false
}
