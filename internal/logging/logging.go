// Package logging builds the process logger: console output through a
// swappable sink plus a rotating file under ~/.dockup/logs.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level   string
	File    string
	Console io.Writer
}

// Sink is the console half of the logger. A full-screen UI swaps it out
// while it owns the terminal.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Swap redirects console output to w until restore is called.
func (s *Sink) Swap(w io.Writer) (restore func()) {
	s.mu.Lock()
	prev := s.w
	s.w = w
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.w = prev
			s.mu.Unlock()
		})
	}
}

type Logger struct {
	*log.Logger
	console *Sink
	file    *lumberjack.Logger
}

func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	sink := NewSink(console)

	var out io.Writer = sink
	var file *lumberjack.Logger
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, err
		}
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		out = io.MultiWriter(sink, file)
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           ParseLevel(opts.Level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})

	return &Logger{Logger: logger, console: sink, file: file}, nil
}

// Discard returns a logger that drops everything, for tests and quiet paths.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func (l *Logger) Console() *Sink {
	return l.console
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a config level name to a log level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
