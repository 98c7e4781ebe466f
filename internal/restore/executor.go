package restore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/internal/failure"
	"github.com/aelpxy/dockup/internal/layout"
	"github.com/aelpxy/dockup/internal/remote"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/charmbracelet/log"
	"github.com/lucsky/cuid"
)

type Extractor interface {
	Extract(ctx context.Context, archivePath, dst string) error
}

// VolumeRestorer replaces a named volume's contents from an archive.
type VolumeRestorer interface {
	Restore(ctx context.Context, volumeName, archivePath string) error
}

// Step is one item of a restore: the archive to fetch and what it replaces.
type Step struct {
	Name        string
	Kind        models.ItemKind
	Remote      string
	Destination string
	ScratchName string
}

// Steps expands a selection into steps, repo first so volume archives land
// on top of the restored tree.
func Steps(remoteRoot string, sel Selection) []Step {
	l := layout.ForRecord(remoteRoot, sel.Record)

	var steps []Step
	if sel.Repo {
		steps = append(steps, Step{
			Name:        models.RepoItemName,
			Kind:        models.ItemKindRepo,
			Remote:      l.RepoArchive(),
			Destination: sel.Record.ApplicationPath,
			ScratchName: constants.RepoArchive,
		})
	}
	names := layout.ArchiveNames(sel.Record.Volumes)
	for _, v := range sel.Volumes {
		file, ok := names[v.Name]
		if !ok {
			file = layout.ArchiveName(v.Name)
		}
		steps = append(steps, Step{
			Name:        v.Name,
			Kind:        models.ItemKindFor(v),
			Remote:      l.VolumeFile(file),
			Destination: v.Path,
			ScratchName: file,
		})
	}
	return steps
}

type Outcome struct {
	models.ItemOutcome
	Destination string
}

func (o Outcome) Line() string {
	if !o.OK() {
		return fmt.Sprintf("%s -> %s: %v", o.Name, o.Destination, o.Err)
	}
	return fmt.Sprintf("%s -> %s (%s, %s)", o.Name, o.Destination, o.Size, o.DurationString())
}

type Executor struct {
	store      remote.Store
	extractor  Extractor
	volumes    VolumeRestorer
	root       string
	scratchDir string
	logger     *log.Logger
	// bounds each extract once it has started
	extractTimeout time.Duration

	runID func() string
}

// NewExecutor wires a restore run. volumes may be nil when no container
// runtime is reachable; named volume steps then fail individually.
func NewExecutor(store remote.Store, extractor Extractor, volumes VolumeRestorer, remoteRoot, scratchDir string, logger *log.Logger) *Executor {
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), constants.ScratchDirName)
	}
	return &Executor{
		store:      store,
		extractor:  extractor,
		volumes:    volumes,
		root:       remoteRoot,
		scratchDir: scratchDir,
		logger:     logger,
		runID:      cuid.New,
	}
}

func (e *Executor) SetExtractTimeout(d time.Duration) {
	e.extractTimeout = d
}

// Execute runs every step in order, one at a time. A failed step is
// reported and the next one still runs. Cancellation is checked between
// steps only; a step that has started runs to completion or to its timeout.
func (e *Executor) Execute(ctx context.Context, sel Selection, onStep func(Outcome)) []Outcome {
	scratch := filepath.Join(e.scratchDir, e.runID())
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			e.logger.Warn("failed to remove scratch directory", "path", scratch, "err", err)
		}
	}()

	e.logger.Info("starting restore",
		"project", sel.Record.Name,
		"backup", layout.DirName(sel.Record),
		"repo", sel.Repo,
		"volumes", len(sel.Volumes))

	var outcomes []Outcome
	for _, step := range Steps(e.root, sel) {
		var out Outcome
		if err := ctx.Err(); err != nil {
			out = Outcome{ItemOutcome: models.Failed(step.Name, step.Kind, fmt.Errorf("not started: %w", err)), Destination: step.Destination}
		} else {
			out = e.runStep(ctx, step, filepath.Join(scratch, step.ScratchName))
		}
		outcomes = append(outcomes, out)
		if onStep != nil {
			onStep(out)
		}
	}
	return outcomes
}

func (e *Executor) runStep(ctx context.Context, step Step, local string) Outcome {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	out := Outcome{Destination: step.Destination}

	defer func() {
		if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("scratch cleanup failed", "err", failure.Wrap(failure.Cleanup, "remove", local, err))
		}
	}()

	if err := e.store.Download(ctx, step.Remote, local); err != nil {
		e.logger.Error("download failed", "item", step.Name, "err", err)
		out.ItemOutcome = models.Failed(step.Name, step.Kind, err)
		return out
	}

	size := models.UnknownSize
	if info, err := os.Stat(local); err == nil {
		size = models.SizeOf(info.Size())
	}

	if err := e.apply(ctx, step, local); err != nil {
		e.logger.Error("restore failed", "item", step.Name, "err", err)
		out.ItemOutcome = models.Failed(step.Name, step.Kind, err)
		return out
	}

	elapsed := time.Since(start)
	e.logger.Info("item restored", "item", step.Name, "destination", step.Destination, "elapsed", elapsed)
	out.ItemOutcome = models.Succeeded(step.Name, step.Kind, size, elapsed)
	return out
}

func (e *Executor) apply(ctx context.Context, step Step, local string) error {
	if e.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.extractTimeout)
		defer cancel()
	}

	if step.Kind == models.ItemKindNamed {
		if e.volumes == nil {
			return failure.Wrap(failure.Archive, "restore volume", step.Destination, errors.New("container runtime unavailable"))
		}
		return failure.Wrap(failure.Archive, "restore volume", step.Destination, e.volumes.Restore(ctx, step.Destination, local))
	}

	if err := ReplaceDir(step.Destination); err != nil {
		return failure.Wrap(failure.Archive, "replace destination", step.Destination, err)
	}
	return failure.Wrap(failure.Archive, "extract", step.Destination, e.extractor.Extract(ctx, local, step.Destination))
}

// ReplaceDir removes dir recursively and recreates it empty. No copy of the
// previous contents is kept.
func ReplaceDir(dir string) error {
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("refusing to replace relative path %q", dir)
	}
	clean := filepath.Clean(dir)
	if clean == string(filepath.Separator) {
		return fmt.Errorf("refusing to replace the filesystem root")
	}
	if home, err := os.UserHomeDir(); err == nil && clean == filepath.Clean(home) {
		return fmt.Errorf("refusing to replace the home directory")
	}

	if err := os.RemoveAll(clean); err != nil {
		return err
	}
	return os.MkdirAll(clean, 0755)
}
