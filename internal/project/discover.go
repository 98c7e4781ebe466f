package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aelpxy/dockup/internal/failure"
	"github.com/aelpxy/dockup/pkg/models"
)

type Discovery struct {
	Applications []models.Application
	// Failures holds one entry per application whose descriptor could not
	// be loaded. Siblings are still discovered.
	Failures []AppFailure
}

// AppFailure is a DiscoveryError tied to the application directory it
// came from.
type AppFailure struct {
	Name string
	Err  error
}

func (f AppFailure) Error() string {
	return f.Err.Error()
}

func (f AppFailure) Unwrap() error {
	return f.Err
}

// Discover scans the immediate subdirectories of root for compose projects.
// Only an unreadable root is fatal.
func Discover(root string) (*Discovery, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, failure.Wrap(failure.Discovery, "read applications root", root, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	result := &Discovery{Applications: []models.Application{}}
	now := time.Now()

	for _, entry := range entries {
		appRoot := filepath.Join(root, entry.Name())
		if !isDir(appRoot, entry) {
			continue
		}

		composePath := FindComposeFile(appRoot)
		if composePath == "" {
			continue
		}

		volumes, err := LoadVolumes(composePath, appRoot)
		if err != nil {
			result.Failures = append(result.Failures, AppFailure{
				Name: entry.Name(),
				Err:  failure.Wrap(failure.Discovery, "load compose descriptor", composePath, err),
			})
			continue
		}

		result.Applications = append(result.Applications, models.Application{
			Name:         entry.Name(),
			Path:         appRoot,
			DiscoveredAt: now,
			Volumes:      volumes,
		})
	}

	return result, nil
}

// Failure returns the discovery failure recorded for name, if any.
func (d *Discovery) Failure(name string) (AppFailure, bool) {
	for _, f := range d.Failures {
		if f.Name == name {
			return f, true
		}
	}
	return AppFailure{}, false
}

// Find returns the discovered application with the given name.
func (d *Discovery) Find(name string) (models.Application, error) {
	for _, app := range d.Applications {
		if app.Name == name {
			return app, nil
		}
	}
	return models.Application{}, fmt.Errorf("application not found: %s", name)
}

// Select keeps the named applications, or all of them when names is empty,
// along with the discovery failures of the ones it keeps. A name that is
// neither discovered nor failed is an error.
func (d *Discovery) Select(names []string) ([]models.Application, []AppFailure, error) {
	if len(names) == 0 {
		return d.Applications, d.Failures, nil
	}

	var apps []models.Application
	var failures []AppFailure
	for _, name := range names {
		if f, ok := d.Failure(name); ok {
			failures = append(failures, f)
			continue
		}
		app, err := d.Find(name)
		if err != nil {
			return nil, nil, err
		}
		apps = append(apps, app)
	}
	return apps, failures, nil
}

func isDir(path string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink != 0 {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
	return false
}
