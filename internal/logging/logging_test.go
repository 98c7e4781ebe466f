package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkSwapAndRestore(t *testing.T) {
	var console, captured bytes.Buffer
	logger, err := New(Options{Level: "info", Console: &console})
	require.NoError(t, err)

	logger.Info("before")
	restore := logger.Console().Swap(&captured)
	logger.Info("during")
	restore()
	restore()
	logger.Info("after")

	assert.Contains(t, console.String(), "before")
	assert.Contains(t, console.String(), "after")
	assert.NotContains(t, console.String(), "during")
	assert.Contains(t, captured.String(), "during")
}

func TestFileReceivesSwappedOutput(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "dockup.log")

	logger, err := New(Options{Level: "debug", File: file, Console: &console})
	require.NoError(t, err)

	restore := logger.Console().Swap(&bytes.Buffer{})
	logger.Debug("archived volume", "name", "cache")
	restore()
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "archived volume")
	assert.Empty(t, console.String())
}

func TestLevelFiltering(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Options{Level: "warn", Console: &console})
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, console.String(), "quiet")
	assert.Contains(t, console.String(), "loud")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, log.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, log.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, log.InfoLevel, ParseLevel("chatty"))
	assert.Equal(t, log.InfoLevel, ParseLevel(""))
}
