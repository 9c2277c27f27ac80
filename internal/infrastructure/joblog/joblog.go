// Package joblog collects every line a single job run emits, in emission
// order, so a failure notification can carry the whole story. Entries are
// mirrored to the system logger as they arrive and spilled to a temp file
// that is deleted when the run ends.
package joblog

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Mirror receives every entry out-of-band, typically the zap logger.
type Mirror interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type Log struct {
	mu      sync.Mutex
	entries []string
	file    *os.File
	mirror  Mirror
	closed  bool
}

func New(dir string, mirror Mirror) (*Log, error) {
	file, err := os.CreateTemp(dir, "argus-job-*.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create job log file: %w", err)
	}
	return &Log{file: file, mirror: mirror}, nil
}

func (l *Log) Infof(template string, args ...interface{}) {
	l.append("INFO", fmt.Sprintf(template, args...))
	if l.mirror != nil {
		l.mirror.Infof(template, args...)
	}
}

func (l *Log) Errorf(template string, args ...interface{}) {
	l.append("ERROR", fmt.Sprintf(template, args...))
	if l.mirror != nil {
		l.mirror.Errorf(template, args...)
	}
}

func (l *Log) append(severity, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := fmt.Sprintf("[%s] %s", severity, message)
	l.entries = append(l.entries, entry)
	if l.file != nil {
		fmt.Fprintln(l.file, entry)
	}
}

// Drain returns every entry emitted so far, one per line, in emission
// order. It does not consume the entries; the run may keep logging.
func (l *Log) Drain() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.entries, "\n")
}

// Path exposes the backing temp file, for diagnostics only.
func (l *Log) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close removes the backing temp file. Safe to call more than once.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.file == nil {
		return nil
	}
	name := l.file.Name()
	if err := l.file.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to close job log file: %w", err)
	}
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove job log file: %w", err)
	}
	return nil
}
