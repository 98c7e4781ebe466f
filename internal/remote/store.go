// Package remote moves archives and metadata between the local host and
// the backup store.
package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/aelpxy/dockup/pkg/models"
	"github.com/charmbracelet/log"
)

// Entry is one child of a remote directory. IsDir comes from the store's
// own file mode, never from the name.
type Entry struct {
	Name  string
	IsDir bool
}

type Store interface {
	// MkdirAll creates every dir (and parents) in a single remote round trip.
	MkdirAll(ctx context.Context, dirs ...string) error
	List(ctx context.Context, dir string) ([]Entry, error)
	ReadFile(ctx context.Context, p string) ([]byte, error)
	WriteFile(ctx context.Context, p string, data []byte) error
	// Upload copies a local file to p and returns the size observed on the
	// remote side after the transfer.
	Upload(ctx context.Context, local, p string) (int64, error)
	Download(ctx context.Context, p, local string) error
	Close() error
}

// Dirs filters entries down to directories.
func Dirs(entries []Entry) []string {
	var names []string
	for _, e := range entries {
		if e.IsDir {
			names = append(names, e.Name)
		}
	}
	return names
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func mkdirCommand(dirs []string) string {
	quoted := make([]string, len(dirs))
	for i, d := range dirs {
		quoted[i] = shellQuote(d)
	}
	return "mkdir -p " + strings.Join(quoted, " ")
}

// Open returns the store selected by the ssh.transport setting.
func Open(cfg models.GlobalConfig, logger *log.Logger) (Store, error) {
	switch cfg.SSH.Transport {
	case models.TransportLocal:
		return NewLocalStore(), nil
	case models.TransportSSH, "":
		return NewSSHStore(cfg.SSH, cfg.Timeouts, logger)
	default:
		return nil, fmt.Errorf("unknown transport %q (expected ssh or local)", cfg.SSH.Transport)
	}
}
