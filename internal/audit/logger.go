// Package audit maintains the append-only trail of configuration and
// access-control events as JSON Lines, with size-based rotation to indexed
// backups.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/guardpost/guardpost/internal/log"
)

const (
	// DefaultMaxSizeBytes is the rotation threshold for the active file.
	DefaultMaxSizeBytes = 10 << 20

	// DefaultMaxBackups is how many rotated files are retained.
	DefaultMaxBackups = 5
)

// ErrWriteFailed indicates an append or rotation did not complete. By
// policy this does not block the administrative operation that triggered
// it, but it must be surfaced to operators.
var ErrWriteFailed = errors.New("audit write failed")

// Config configures a Logger.
type Config struct {
	// Path is the active audit file. Callers validate it against the
	// expected base directory before constructing the logger.
	Path string `conf:"path" yaml:"path" json:"path"`

	// MaxSizeBytes rotates the active file once it would exceed this size.
	MaxSizeBytes int64 `conf:"max_size_bytes" yaml:"max_size_bytes" json:"max_size_bytes"`

	// MaxBackups is the number of rotated files to retain.
	MaxBackups int `conf:"max_backups" yaml:"max_backups" json:"max_backups"`

	// FileMode defaults to 0600.
	FileMode os.FileMode `conf:"file_mode" yaml:"file_mode" json:"file_mode"`
}

// Logger owns the audit file and its rotation state. Appends and rotation
// share one mutex, so concurrent callers never interleave partial lines and
// no entry is lost or duplicated across a rotation boundary.
type Logger struct {
	fs         afero.Fs
	path       string
	maxSize    int64
	maxBackups int
	mode       os.FileMode

	mu   sync.Mutex
	file afero.File
	size int64
}

// NewLogger opens (or creates) the active audit file for appending.
func NewLogger(fs afero.Fs, config Config) (*Logger, error) {
	if config.Path == "" {
		return nil, errors.New("audit: path is required")
	}

	maxSize := config.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeBytes
	}

	maxBackups := config.MaxBackups
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}

	mode := config.FileMode
	if mode == 0 {
		mode = 0o600
	}

	if err := fs.MkdirAll(filepath.Dir(config.Path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	logger := &Logger{
		fs:         fs,
		path:       config.Path,
		maxSize:    maxSize,
		maxBackups: maxBackups,
		mode:       mode,
	}

	if err := logger.open(); err != nil {
		return nil, err
	}

	return logger, nil
}

func (l *Logger) open() error {
	file, err := l.fs.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, l.mode)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", l.path, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("audit: stat %s: %w", l.path, err)
	}

	l.file = file
	l.size = info.Size()

	return nil
}

// Path returns the active audit file location.
func (l *Logger) Path() string {
	return l.path
}

// Log appends one entry as a single JSON line. The timestamp is stamped
// here; any caller-supplied value is overwritten.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	entry.Timestamp = time.Now().UTC()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrWriteFailed, err)
	}

	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size > 0 && l.size+int64(len(line)) > l.maxSize {
		if err := l.rotate(ctx); err != nil {
			return fmt.Errorf("%w: rotate: %v", ErrWriteFailed, err)
		}
	}

	n, err := l.file.Write(line)
	l.size += int64(n)

	if err != nil {
		return fmt.Errorf("%w: append: %v", ErrWriteFailed, err)
	}

	return nil
}

// rotate renames the active file to the first indexed backup, shifting
// existing backups up and pruning past the retention count. Called with the
// mutex held.
func (l *Logger) rotate(ctx context.Context) error {
	if err := l.file.Close(); err != nil {
		return err
	}

	if err := l.fs.Remove(l.backupPath(l.maxBackups)); err != nil && !os.IsNotExist(err) {
		return err
	}

	for i := l.maxBackups - 1; i >= 1; i-- {
		err := l.fs.Rename(l.backupPath(i), l.backupPath(i+1))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	if err := l.fs.Rename(l.path, l.backupPath(1)); err != nil {
		return err
	}

	log.Debug(ctx, "rotated audit log",
		log.String("path", l.path),
		log.Int("max_backups", l.maxBackups),
	)

	return l.open()
}

func (l *Logger) backupPath(index int) string {
	return fmt.Sprintf("%s.%d", l.path, index)
}

// Recent returns the last count entries in write order, most recent last.
// It reads the active file and, if that holds fewer than count entries, the
// most recent backup. A trailing partial line (crash mid-append) is
// discarded rather than failing the read.
func (l *Logger) Recent(ctx context.Context, count int) ([]Entry, error) {
	if count <= 0 {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readEntries(ctx, l.path)
	if err != nil {
		return nil, err
	}

	if len(entries) < count {
		backup, err := l.readEntries(ctx, l.backupPath(1))
		if err != nil {
			return nil, err
		}

		entries = append(backup, entries...)
	}

	if len(entries) > count {
		entries = entries[len(entries)-count:]
	}

	return entries, nil
}

func (l *Logger) readEntries(ctx context.Context, path string) ([]Entry, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("audit: read %s: %w", path, err)
	}

	lines := bytes.Split(data, []byte("\n"))

	entries := make([]Entry, 0, len(lines))

	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		if !gjson.ValidBytes(line) {
			if i == len(lines)-1 {
				// Trailing partial line from a crash mid-append.
				continue
			}

			log.Warn(ctx, "skipping malformed audit line",
				log.String("path", path),
				log.Int("line", i+1),
			)

			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			log.Warn(ctx, "skipping undecodable audit line",
				log.String("path", path),
				log.Int("line", i+1),
				log.Cause(err),
			)

			continue
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Close flushes and closes the active file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}
