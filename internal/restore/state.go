// Package restore drives restores: the three-column selection state, the
// interactive browser on top of it, and the executor that downloads and
// replaces data.
package restore

import (
	"github.com/aelpxy/dockup/internal/catalog"
	"github.com/aelpxy/dockup/pkg/models"
)

type Column int

const (
	ColumnProjects Column = iota
	ColumnDates
	ColumnVolumes
)

func (c Column) String() string {
	switch c {
	case ColumnDates:
		return "dates"
	case ColumnVolumes:
		return "volumes"
	default:
		return "projects"
	}
}

// Item is one row of the volumes column. The first row is always the
// application tree itself.
type Item struct {
	Name   string
	Repo   bool
	Volume models.Volume
}

// State is the browser's selection. The cursor triple (project, date, item)
// is the single source of truth; every list is derived from the inventory
// by following it.
type State struct {
	inv   *catalog.Inventory
	focus Column

	project int
	date    int
	item    int

	selected map[string]bool
	repo     bool
}

func NewState(inv *catalog.Inventory) *State {
	return &State{inv: inv, selected: make(map[string]bool)}
}

func (s *State) Focus() Column {
	return s.focus
}

func (s *State) Projects() []string {
	return s.inv.Projects()
}

// Dates lists the current project's backups, newest first.
func (s *State) Dates() []models.BackupRecord {
	project, ok := s.CurrentProject()
	if !ok {
		return nil
	}
	return s.inv.Backups(project)
}

func (s *State) Items() []Item {
	record, ok := s.CurrentBackup()
	if !ok {
		return nil
	}
	items := make([]Item, 0, len(record.Volumes)+1)
	items = append(items, Item{Name: models.RepoItemName, Repo: true})
	for _, v := range record.Volumes {
		items = append(items, Item{Name: v.Name, Volume: v})
	}
	return items
}

func (s *State) CurrentProject() (string, bool) {
	projects := s.Projects()
	if s.project >= len(projects) {
		return "", false
	}
	return projects[s.project], true
}

func (s *State) CurrentBackup() (models.BackupRecord, bool) {
	dates := s.Dates()
	if s.date >= len(dates) {
		return models.BackupRecord{}, false
	}
	return dates[s.date], true
}

func (s *State) CurrentItem() (Item, bool) {
	items := s.Items()
	if s.item >= len(items) {
		return Item{}, false
	}
	return items[s.item], true
}

// Cursor returns the index held for col.
func (s *State) Cursor(col Column) int {
	switch col {
	case ColumnDates:
		return s.date
	case ColumnVolumes:
		return s.item
	default:
		return s.project
	}
}

func (s *State) Up() {
	switch s.focus {
	case ColumnProjects:
		if s.project > 0 {
			s.setProject(s.project - 1)
		}
	case ColumnDates:
		if s.date > 0 {
			s.setDate(s.date - 1)
		}
	case ColumnVolumes:
		if s.item > 0 {
			s.item--
		}
	}
}

func (s *State) Down() {
	switch s.focus {
	case ColumnProjects:
		if s.project+1 < len(s.Projects()) {
			s.setProject(s.project + 1)
		}
	case ColumnDates:
		if s.date+1 < len(s.Dates()) {
			s.setDate(s.date + 1)
		}
	case ColumnVolumes:
		// volumes plus the repo slot
		if s.item+1 < len(s.Items()) {
			s.item++
		}
	}
}

func (s *State) setProject(i int) {
	s.project = i
	s.setDate(0)
}

func (s *State) setDate(i int) {
	s.date = i
	s.item = 0
	s.clearSelection()
}

// Right moves focus to the next column when that column has something to
// show.
func (s *State) Right() {
	switch s.focus {
	case ColumnProjects:
		if len(s.Dates()) > 0 {
			s.focus = ColumnDates
		}
	case ColumnDates:
		if _, ok := s.CurrentBackup(); ok {
			s.focus = ColumnVolumes
		}
	}
}

// Left moves focus back. Leaving the volumes column drops the selection,
// which is scoped to one backup.
func (s *State) Left() {
	switch s.focus {
	case ColumnVolumes:
		s.clearSelection()
		s.focus = ColumnDates
	case ColumnDates:
		s.focus = ColumnProjects
	}
}

// Toggle flips the highlighted row. The repo row flips the repo flag and
// never enters the volume set.
func (s *State) Toggle() {
	if s.focus != ColumnVolumes {
		return
	}
	item, ok := s.CurrentItem()
	if !ok {
		return
	}
	if item.Repo {
		s.repo = !s.repo
		return
	}
	if s.selected[item.Name] {
		delete(s.selected, item.Name)
	} else {
		s.selected[item.Name] = true
	}
}

// SelectAll adds every volume of the current backup. The repo flag is left
// as it is.
func (s *State) SelectAll() {
	if s.focus != ColumnVolumes {
		return
	}
	record, ok := s.CurrentBackup()
	if !ok {
		return
	}
	for _, v := range record.Volumes {
		s.selected[v.Name] = true
	}
}

func (s *State) SelectNone() {
	if s.focus != ColumnVolumes {
		return
	}
	s.selected = make(map[string]bool)
}

func (s *State) clearSelection() {
	s.selected = make(map[string]bool)
	s.repo = false
}

func (s *State) IsSelected(item Item) bool {
	if item.Repo {
		return s.repo
	}
	return s.selected[item.Name]
}

func (s *State) RepoSelected() bool {
	return s.repo
}

func (s *State) SelectedCount() int {
	n := len(s.selected)
	if s.repo {
		n++
	}
	return n
}

// Selection snapshots what would be restored, volumes in record order.
func (s *State) Selection() (Selection, bool) {
	record, ok := s.CurrentBackup()
	if !ok || s.SelectedCount() == 0 {
		return Selection{}, false
	}

	sel := Selection{Record: record, Repo: s.repo}
	for _, v := range record.Volumes {
		if s.selected[v.Name] {
			sel.Volumes = append(sel.Volumes, v)
		}
	}
	return sel, true
}

// Selection is a confirmed choice of items from one backup.
type Selection struct {
	Record  models.BackupRecord
	Repo    bool
	Volumes []models.Volume
}

func (s Selection) Empty() bool {
	return !s.Repo && len(s.Volumes) == 0
}
