package backup

import (
	"fmt"
	"time"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/internal/layout"
	"github.com/aelpxy/dockup/pkg/models"
)

// Item is one archive the run produces: where it is read from, where it
// lands remotely and the scratch file name used in between.
type Item struct {
	Name        string
	Kind        models.ItemKind
	Source      string
	Remote      string
	ScratchName string
}

type AppPlan struct {
	App    models.Application
	Layout layout.Layout
	Items  []Item
}

// PlanApp lists the items for one application in processing order: the
// repository tree first, then each volume as declared.
func PlanApp(remoteRoot string, app models.Application, timestamp time.Time) AppPlan {
	l := layout.New(remoteRoot, app.Name, constants.FormatTimestamp(timestamp))

	items := make([]Item, 0, len(app.Volumes)+1)
	items = append(items, Item{
		Name:        models.RepoItemName,
		Kind:        models.ItemKindRepo,
		Source:      app.Path,
		Remote:      l.RepoArchive(),
		ScratchName: constants.RepoArchive,
	})

	names := layout.ArchiveNames(app.Volumes)
	for _, v := range app.Volumes {
		items = append(items, Item{
			Name:        v.Name,
			Kind:        models.ItemKindFor(v),
			Source:      v.Path,
			Remote:      l.VolumeFile(names[v.Name]),
			ScratchName: names[v.Name],
		})
	}

	return AppPlan{App: app, Layout: l, Items: items}
}

func PlanRun(remoteRoot string, apps []models.Application, timestamp time.Time) []AppPlan {
	plans := make([]AppPlan, 0, len(apps))
	for _, app := range apps {
		plans = append(plans, PlanApp(remoteRoot, app, timestamp))
	}
	return plans
}

// Describe renders a one-line plan entry for dry runs.
func (i Item) Describe() string {
	return fmt.Sprintf("%-5s %s -> %s", i.Kind, i.Source, i.Remote)
}
