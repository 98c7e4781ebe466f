// Package lock serializes dockup runs on one host with pid lock files.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrBusy is returned when the lock is still held when the timeout ends.
var ErrBusy = errors.New("another dockup run is in progress")

type Manager struct {
	lockDir string
	pid     int
	alive   func(pid int) bool
}

func NewManager(lockDir string) (*Manager, error) {
	if err := os.MkdirAll(lockDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Manager{lockDir: lockDir, pid: os.Getpid(), alive: processAlive}, nil
}

func (lm *Manager) path(name string) string {
	return filepath.Join(lm.lockDir, name+".lock")
}

// TryLock takes the named lock, waiting up to timeout. A lock left behind
// by a process that no longer exists is taken over.
func (lm *Manager) TryLock(name string, timeout time.Duration) error {
	lockFile := lm.path(name)
	deadline := time.Now().Add(timeout)

	for {
		f, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", lm.pid)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(lockFile)
				return fmt.Errorf("failed to write lock file: %w", errors.Join(werr, cerr))
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		if pid, ok := lm.Holder(name); ok && !lm.alive(pid) {
			os.Remove(lockFile)
			continue
		}

		if !time.Now().Before(deadline) {
			return ErrBusy
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Unlock releases the lock if this process holds it.
func (lm *Manager) Unlock(name string) {
	if pid, ok := lm.Holder(name); ok && pid == lm.pid {
		os.Remove(lm.path(name))
	}
}

// Holder returns the pid recorded in the named lock file.
func (lm *Manager) Holder(name string) (int, bool) {
	data, err := os.ReadFile(lm.path(name))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

func (lm *Manager) IsLocked(name string) bool {
	_, err := os.Stat(lm.path(name))
	return err == nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
