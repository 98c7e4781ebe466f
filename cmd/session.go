package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aelpxy/dockup/internal/config"
	"github.com/aelpxy/dockup/internal/docker"
	"github.com/aelpxy/dockup/internal/lock"
	"github.com/aelpxy/dockup/internal/logging"
	"github.com/aelpxy/dockup/internal/remote"
	"github.com/aelpxy/dockup/pkg/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// session bundles what most commands need: the loaded config and a logger.
type session struct {
	manager *config.Manager
	cfg     models.GlobalConfig
	logger  *logging.Logger
}

func newSession() (*session, error) {
	manager, err := config.NewManager(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := manager.Effective()

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, File: cfg.Logging.File})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return &session{manager: manager, cfg: cfg, logger: logger}, nil
}

// mustSession exits the process when the config or logger cannot be set up.
func mustSession() *session {
	s, err := newSession()
	if err != nil {
		fatal(err.Error())
	}
	return s
}

func (s *session) Close() {
	s.logger.Close()
}

func (s *session) openStore() (remote.Store, error) {
	if err := config.ValidateBackup(s.cfg); err != nil {
		return nil, fmt.Errorf("%w (run 'dockup config init' or 'dockup config set')", err)
	}
	return remote.Open(s.cfg, s.logger.Logger)
}

// openDocker connects to the container runtime. A nil client with an error
// means named volumes cannot be handled in this run.
func (s *session) openDocker(ctx context.Context) (*docker.Client, error) {
	client, err := docker.NewClient(s.cfg.Runtime)
	if err != nil {
		return nil, err
	}
	if _, err := client.ServerVersion(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("runtime daemon not responding: %w", err)
	}
	return client, nil
}

// lockRun keeps a backup and a restore from running at the same time on
// this host.
func (s *session) lockRun() (unlock func(), err error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	locks, err := lock.NewManager(filepath.Join(dir, "locks"))
	if err != nil {
		return nil, err
	}
	if err := locks.TryLock(runLockName, runLockWait); err != nil {
		return nil, err
	}
	return func() { locks.Unlock(runLockName) }, nil
}

const (
	runLockName = "run"
	runLockWait = 5 * time.Second
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("[error] "+msg))
	os.Exit(1)
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().
					Foreground(lipgloss.Color("86")).
					Bold(true).
					Align(lipgloss.Center)
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func statusText(ok bool) string {
	if ok {
		return successStyle.Render("ok")
	}
	return errorStyle.Render("failed")
}
