package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/aelpxy/dockup/internal/failure"
	"github.com/aelpxy/dockup/internal/layout"
	"github.com/aelpxy/dockup/internal/project"
	"github.com/aelpxy/dockup/internal/remote"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/charmbracelet/log"
	"github.com/lucsky/cuid"
)

// Archiver packs a source into a tar.gz at dst and returns the archive size.
// For bind items the source is a host path, for named items it is the
// runtime volume name.
type Archiver interface {
	Archive(ctx context.Context, source, dst string) (int64, error)
}

type Options struct {
	RemoteRoot     string
	ScratchDir     string
	Kind           models.BackupKind
	ArchiveTimeout time.Duration
	// ConfigFile, when set, is uploaded to the remote root before any
	// application is processed.
	ConfigFile string
	// Unreadable lists applications whose compose descriptor failed to
	// load. Each is reported as a failed application in the summary.
	Unreadable []project.AppFailure
}

// Hooks report progress to the caller. Any of them may be nil.
type Hooks struct {
	AppStarted func(plan AppPlan)
	ItemDone   func(app string, outcome models.ItemOutcome)
	AppDone    func(summary models.AppSummary)
}

type Manager struct {
	store  remote.Store
	local  Archiver
	named  Archiver
	logger *log.Logger
	opts   Options
	hooks  Hooks

	now   func() time.Time
	runID func() string
}

// NewManager wires the pipeline. named may be nil when no container runtime
// is reachable; named volumes then fail individually.
func NewManager(store remote.Store, local, named Archiver, logger *log.Logger, opts Options) *Manager {
	if opts.Kind == "" {
		opts.Kind = models.BackupKindManual
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = filepath.Join(os.TempDir(), constants.ScratchDirName)
	}
	return &Manager{
		store:  store,
		local:  local,
		named:  named,
		logger: logger,
		opts:   opts,
		now:    time.Now,
		runID:  cuid.New,
	}
}

func (m *Manager) SetHooks(hooks Hooks) {
	m.hooks = hooks
}

// Run backs up every application in order under one shared timestamp.
// Item and application failures are recorded in the summary, never
// returned.
func (m *Manager) Run(ctx context.Context, apps []models.Application) models.RunSummary {
	timestamp := m.now().Truncate(time.Second)
	summary := models.RunSummary{Timestamp: timestamp, Kind: m.opts.Kind}

	scratchRoot := filepath.Join(m.opts.ScratchDir, m.runID())
	defer func() {
		if err := os.RemoveAll(scratchRoot); err != nil {
			m.logger.Warn("failed to remove scratch directory", "path", scratchRoot, "err", err)
		}
	}()

	m.logger.Info("starting backup run",
		"timestamp", constants.FormatTimestamp(timestamp),
		"kind", m.opts.Kind,
		"apps", len(apps))

	if m.opts.ConfigFile != "" {
		m.uploadConfig(context.WithoutCancel(ctx))
	}

	for _, f := range m.opts.Unreadable {
		app := models.AppSummary{Name: f.Name, Err: f.Err}
		summary.Add(app)
		if m.hooks.AppDone != nil {
			m.hooks.AppDone(app)
		}
	}

	for _, plan := range PlanRun(m.opts.RemoteRoot, apps, timestamp) {
		if err := ctx.Err(); err != nil {
			m.logger.Warn("backup run interrupted", "remaining_from", plan.App.Name, "err", err)
			break
		}

		app := m.backupApp(ctx, plan, timestamp, filepath.Join(scratchRoot, layout.Sanitize(plan.App.Name)))
		summary.Add(app)
		if m.hooks.AppDone != nil {
			m.hooks.AppDone(app)
		}
	}

	totals := summary.Totals()
	m.logger.Info("backup run finished",
		"items", totals.Items,
		"succeeded", totals.Succeeded,
		"failed", totals.Failed,
		"bytes", totals.Bytes)

	return summary
}

func (m *Manager) backupApp(ctx context.Context, plan AppPlan, timestamp time.Time, scratch string) models.AppSummary {
	summary := models.AppSummary{Name: plan.App.Name}
	if m.hooks.AppStarted != nil {
		m.hooks.AppStarted(plan)
	}

	m.logger.Info("backing up application", "app", plan.App.Name, "dir", plan.Layout.Dir())

	// once an application has started, remote operations run to completion
	// or their own timeout so the record always lands next to the archives
	opCtx := context.WithoutCancel(ctx)

	if err := m.store.MkdirAll(opCtx, plan.Layout.RepoDir(), plan.Layout.VolumesDir()); err != nil {
		m.logger.Error("remote setup failed, skipping application", "app", plan.App.Name, "err", err)
		summary.Err = err
		return summary
	}

	var scratchFiles []string
	for _, item := range plan.Items {
		local := filepath.Join(scratch, item.ScratchName)
		scratchFiles = append(scratchFiles, local)

		var outcome models.ItemOutcome
		if err := ctx.Err(); err != nil {
			outcome = models.Failed(item.Name, item.Kind, fmt.Errorf("not started: %w", err))
		} else {
			outcome = m.processItem(opCtx, item, local)
		}
		summary.Record(outcome)
		if m.hooks.ItemDone != nil {
			m.hooks.ItemDone(plan.App.Name, outcome)
		}
	}

	m.cleanup(scratch, scratchFiles)

	if err := m.writeRecord(opCtx, plan, timestamp); err != nil {
		m.logger.Error("failed to persist backup record", "app", plan.App.Name, "err", err)
		summary.Err = err
	}

	return summary
}

func (m *Manager) processItem(ctx context.Context, item Item, local string) models.ItemOutcome {
	start := time.Now()

	if err := m.archive(ctx, item, local); err != nil {
		m.logger.Error("archive failed", "item", item.Name, "err", err)
		return models.Failed(item.Name, item.Kind, err)
	}

	size, err := m.store.Upload(ctx, local, item.Remote)
	if err != nil {
		m.logger.Error("upload failed", "item", item.Name, "err", err)
		return models.Failed(item.Name, item.Kind, err)
	}

	elapsed := time.Since(start)
	m.logger.Debug("item stored", "item", item.Name, "remote", item.Remote, "bytes", size, "elapsed", elapsed)
	return models.Succeeded(item.Name, item.Kind, models.SizeOf(size), elapsed)
}

func (m *Manager) archive(ctx context.Context, item Item, local string) error {
	archiver := m.local
	if item.Kind == models.ItemKindNamed {
		archiver = m.named
	}
	if archiver == nil {
		return failure.Wrap(failure.Archive, "archive", item.Name, errors.New("container runtime unavailable"))
	}

	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return failure.Wrap(failure.Archive, "prepare scratch", filepath.Dir(local), err)
	}

	if m.opts.ArchiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ArchiveTimeout)
		defer cancel()
	}

	_, err := archiver.Archive(ctx, item.Source, local)
	return failure.Wrap(failure.Archive, "archive", item.Name, err)
}

// cleanup runs regardless of item outcomes; failures are only logged.
func (m *Manager) cleanup(scratch string, files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("scratch cleanup failed", "err", failure.Wrap(failure.Cleanup, "remove", f, err))
		}
	}
	if err := os.Remove(scratch); err != nil && !os.IsNotExist(err) {
		m.logger.Debug("scratch directory not removed", "path", scratch, "err", err)
	}
}

func (m *Manager) writeRecord(ctx context.Context, plan AppPlan, timestamp time.Time) error {
	record := models.NewBackupRecord(plan.App, timestamp, m.opts.Kind)
	data, err := record.Marshal()
	if err != nil {
		return failure.Wrap(failure.Metadata, "encode backup record", plan.App.Name, err)
	}
	if err := m.store.WriteFile(ctx, plan.Layout.Metadata(), data); err != nil {
		return failure.Wrap(failure.Metadata, "write backup record", plan.Layout.Metadata(), err)
	}
	return nil
}

func (m *Manager) uploadConfig(ctx context.Context) {
	dst := path.Join(m.opts.RemoteRoot, constants.ConfigUploadAs)
	if err := m.store.MkdirAll(ctx, m.opts.RemoteRoot); err != nil {
		m.logger.Warn("config upload skipped", "err", err)
		return
	}
	if _, err := m.store.Upload(ctx, m.opts.ConfigFile, dst); err != nil {
		m.logger.Warn("config upload failed", "err", err)
		return
	}
	m.logger.Debug("config uploaded", "remote", dst)
}
