package lock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, pid int) *Manager {
	t.Helper()
	lm, err := NewManager(filepath.Join(t.TempDir(), "locks"))
	require.NoError(t, err)
	lm.pid = pid
	lm.alive = func(p int) bool { return p == 100 || p == 200 }
	return lm
}

func TestTryLock_AndUnlock(t *testing.T) {
	lm := newTestManager(t, 100)

	require.NoError(t, lm.TryLock("backup", time.Second))
	assert.True(t, lm.IsLocked("backup"))

	pid, ok := lm.Holder("backup")
	require.True(t, ok)
	assert.Equal(t, 100, pid)

	lm.Unlock("backup")
	assert.False(t, lm.IsLocked("backup"))
}

func TestTryLock_BusyWhileHolderAlive(t *testing.T) {
	first := newTestManager(t, 100)
	require.NoError(t, first.TryLock("backup", time.Second))

	second := &Manager{lockDir: first.lockDir, pid: 200, alive: first.alive}
	err := second.TryLock("backup", 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrBusy)

	second.Unlock("backup")
	assert.True(t, first.IsLocked("backup"))
}

func TestTryLock_TakesOverStaleLock(t *testing.T) {
	lm := newTestManager(t, 200)
	require.NoError(t, os.WriteFile(lm.path("backup"), []byte("999\n"), 0600))

	require.NoError(t, lm.TryLock("backup", 0))
	pid, ok := lm.Holder("backup")
	require.True(t, ok)
	assert.Equal(t, 200, pid)
}

func TestTryLock_WaitsForRelease(t *testing.T) {
	first := newTestManager(t, 100)
	require.NoError(t, first.TryLock("backup", time.Second))

	go func() {
		time.Sleep(150 * time.Millisecond)
		first.Unlock("backup")
	}()

	second := &Manager{lockDir: first.lockDir, pid: 200, alive: first.alive}
	require.NoError(t, second.TryLock("backup", 5*time.Second))
	pid, _ := second.Holder("backup")
	assert.Equal(t, 200, pid)
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(0))
}
