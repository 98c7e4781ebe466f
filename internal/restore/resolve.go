package restore

import (
	"fmt"
	"strings"

	"github.com/aelpxy/dockup/internal/catalog"
	"github.com/aelpxy/dockup/internal/layout"
	"github.com/aelpxy/dockup/pkg/models"
)

// Request is a restore described on the command line instead of picked in
// the browser.
type Request struct {
	Project string
	// Version is a backup directory name; empty or "latest" picks the
	// newest backup.
	Version string
	Repo    bool
	Volumes []string
	All     bool
}

func Resolve(inv *catalog.Inventory, req Request) (Selection, error) {
	if req.Project == "" {
		return Selection{}, fmt.Errorf("project is required")
	}

	var (
		record models.BackupRecord
		ok     bool
	)
	if req.Version == "" || strings.EqualFold(req.Version, "latest") {
		record, ok = inv.Latest(req.Project)
		if !ok {
			return Selection{}, fmt.Errorf("no backups found for project %s", req.Project)
		}
	} else {
		record, ok = inv.Find(req.Project, req.Version)
		if !ok {
			return Selection{}, fmt.Errorf("backup %s not found for project %s", req.Version, req.Project)
		}
	}

	sel := Selection{Record: record, Repo: req.Repo || req.All}
	if req.All {
		sel.Volumes = append(sel.Volumes, record.Volumes...)
		return sel, nil
	}

	for _, name := range req.Volumes {
		v, found := lookupVolume(record, name)
		if !found {
			return Selection{}, fmt.Errorf("volume %s is not part of backup %s", name, layout.DirName(record))
		}
		if !containsVolume(sel.Volumes, v.Name) {
			sel.Volumes = append(sel.Volumes, v)
		}
	}

	if sel.Empty() {
		return Selection{}, fmt.Errorf("nothing selected: pass --repo, --volume or --all")
	}
	return sel, nil
}

// lookupVolume accepts the mount identifier as declared or its archive name.
func lookupVolume(record models.BackupRecord, name string) (models.Volume, bool) {
	if v, ok := record.Volume(name); ok {
		return v, true
	}
	want := layout.ArchiveName(name)
	names := layout.ArchiveNames(record.Volumes)
	for _, v := range record.Volumes {
		if names[v.Name] == want {
			return v, true
		}
	}
	return models.Volume{}, false
}

func containsVolume(volumes []models.Volume, name string) bool {
	for _, v := range volumes {
		if v.Name == name {
			return true
		}
	}
	return false
}
