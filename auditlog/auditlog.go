// Package auditlog keeps an append-only JSONL mirror of recorded matches on disk.
// It survives database resets and gives clearhistory something to back up.
package auditlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Log appends JSON lines to a single file. Safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
}

// New returns a Log writing to path. The file is created lazily on first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the backing file path.
func (l *Log) Path() string { return l.path }

// Append marshals v and writes it as one line.
func (l *Log) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Backup copies the log to <path>.bak, overwriting any previous backup, and returns the
// backup path. A missing log file is not an error; no backup is written.
func (l *Log) Backup() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open audit log: %w", err)
	}
	defer src.Close()
	bak := l.path + ".bak"
	dst, err := os.Create(bak)
	if err != nil {
		return "", fmt.Errorf("create audit backup: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy audit backup: %w", err)
	}
	return bak, nil
}

// Truncate empties the log file. A missing file is not an error.
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := os.Truncate(l.path, 0)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Count returns the number of lines currently in the log. Used by tests and the status
// endpoint; not on any hot path.
func (l *Log) Count() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n, nil
}
