// Package layout computes where a backup instance lives on the remote store.
// Both the backup pipeline and the restore executor go through Layout so the
// two sides can never disagree on a path.
package layout

import (
	"fmt"
	"path"
	"strings"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/pkg/models"
)

type Layout struct {
	Root      string
	Project   string
	Timestamp string
}

func New(root, project, timestamp string) Layout {
	return Layout{
		Root:      strings.TrimRight(root, "/"),
		Project:   project,
		Timestamp: timestamp,
	}
}

// ForRecord locates an existing backup. The directory name recorded by the
// catalog reader wins so minute-resolution directories resolve correctly.
func ForRecord(root string, record models.BackupRecord) Layout {
	return New(root, record.Name, DirName(record))
}

func DirName(record models.BackupRecord) string {
	if record.Directory != "" {
		return record.Directory
	}
	return constants.FormatTimestamp(record.Timestamp)
}

func (l Layout) ProjectDir() string {
	return path.Join(l.Root, l.Project)
}

func (l Layout) Dir() string {
	return path.Join(l.Root, l.Project, l.Timestamp)
}

func (l Layout) RepoDir() string {
	return path.Join(l.Dir(), constants.RepoDir)
}

func (l Layout) VolumesDir() string {
	return path.Join(l.Dir(), constants.VolumesDir)
}

func (l Layout) RepoArchive() string {
	return path.Join(l.RepoDir(), constants.RepoArchive)
}

func (l Layout) VolumeArchive(volumeName string) string {
	return l.VolumeFile(ArchiveName(volumeName))
}

// VolumeFile places an archive file name from ArchiveNames.
func (l Layout) VolumeFile(fileName string) string {
	return path.Join(l.VolumesDir(), fileName)
}

func (l Layout) Metadata() string {
	return path.Join(l.Dir(), constants.MetadataFile)
}

func ArchiveName(volumeName string) string {
	return Sanitize(volumeName) + constants.ArchiveExt
}

// ArchiveNames maps each volume name to its archive file name. Volumes are
// taken in declaration order; a name that sanitizes onto one already taken
// gets the first free "_2", "_3", ... suffix, so the same ordered list always
// yields the same names.
func ArchiveNames(volumes []models.Volume) map[string]string {
	names := make(map[string]string, len(volumes))
	taken := make(map[string]bool, len(volumes))
	for _, v := range volumes {
		if _, ok := names[v.Name]; ok {
			continue
		}
		base := Sanitize(v.Name)
		candidate := base
		for n := 2; taken[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", base, n)
		}
		taken[candidate] = true
		names[v.Name] = candidate + constants.ArchiveExt
	}
	return names
}

// Sanitize flattens a mount identifier into a single path element:
// leading "./" and "../" markers are dropped and separators become
// underscores. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	s := name
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "./"):
			s = s[2:]
		case strings.HasPrefix(s, "../"):
			s = s[3:]
		default:
			s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
			if s == "" || s == "." || s == ".." {
				return "root"
			}
			return s
		}
	}
}
