package models

import (
	"fmt"
	"time"
)

type ItemKind string

const (
	ItemKindRepo  ItemKind = "repo"
	ItemKindBind  ItemKind = "bind"
	ItemKindNamed ItemKind = "named"
)

func ItemKindFor(v Volume) ItemKind {
	if v.Kind == VolumeKindBind {
		return ItemKindBind
	}
	return ItemKindNamed
}

const RepoItemName = "REPO"

// UnknownDuration marks an item whose duration was never measured.
const UnknownDuration time.Duration = -1

type ItemOutcome struct {
	Name     string
	Kind     ItemKind
	Err      error
	Size     Size
	Duration time.Duration
}

func Succeeded(name string, kind ItemKind, size Size, elapsed time.Duration) ItemOutcome {
	return ItemOutcome{
		Name:     name,
		Kind:     kind,
		Size:     size,
		Duration: elapsed,
	}
}

func Failed(name string, kind ItemKind, err error) ItemOutcome {
	if err == nil {
		err = fmt.Errorf("unknown failure")
	}
	return ItemOutcome{
		Name:     name,
		Kind:     kind,
		Err:      err,
		Size:     UnknownSize,
		Duration: UnknownDuration,
	}
}

func (o ItemOutcome) OK() bool {
	return o.Err == nil
}

func (o ItemOutcome) Status() string {
	if o.OK() {
		return "ok"
	}
	return "failed"
}

func (o ItemOutcome) DurationString() string {
	if o.Duration < 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fs", o.Duration.Seconds())
}

type Totals struct {
	Items     int
	Succeeded int
	Failed    int
	Bytes     int64
	Duration  time.Duration
}

func (t *Totals) add(o ItemOutcome) {
	t.Items++
	if !o.OK() {
		t.Failed++
		return
	}
	t.Succeeded++
	t.Bytes += o.Size.Bytes()
	if o.Duration > 0 {
		t.Duration += o.Duration
	}
}

type AppSummary struct {
	Name  string
	Err   error
	Items []ItemOutcome
}

func (s *AppSummary) Record(o ItemOutcome) {
	s.Items = append(s.Items, o)
}

func (s AppSummary) OK() bool {
	if s.Err != nil {
		return false
	}
	for _, item := range s.Items {
		if !item.OK() {
			return false
		}
	}
	return true
}

// Totals counts every item but sums size and duration over successful
// items only.
func (s AppSummary) Totals() Totals {
	var t Totals
	for _, item := range s.Items {
		t.add(item)
	}
	return t
}

type RunSummary struct {
	Timestamp time.Time
	Kind      BackupKind
	Apps      []AppSummary
}

func (r *RunSummary) Add(app AppSummary) {
	r.Apps = append(r.Apps, app)
}

func (r RunSummary) Totals() Totals {
	var t Totals
	for _, app := range r.Apps {
		for _, item := range app.Items {
			t.add(item)
		}
	}
	return t
}

func (r RunSummary) OK() bool {
	for _, app := range r.Apps {
		if !app.OK() {
			return false
		}
	}
	return true
}
