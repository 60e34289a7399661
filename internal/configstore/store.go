// Package configstore persists the policy registry to a single JSON file
// with atomic replace semantics and validated, fail-closed loading.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/guardpost/guardpost/internal/log"
	"github.com/guardpost/guardpost/internal/policy"
)

// SchemaVersion is the persisted format version this build reads and writes.
// A file carrying any other version is treated as unreadable.
const SchemaVersion = 1

var (
	// ErrNotFound indicates no config file exists yet.
	ErrNotFound = errors.New("config file not found")

	// ErrCorrupt indicates the file exists but is unparseable or invalid.
	// The file has been moved aside; the caller must fall back to secure
	// defaults.
	ErrCorrupt = errors.New("config file is corrupt")

	// ErrWriteFailed indicates a save did not complete. The previous file,
	// if any, is still intact at the target path.
	ErrWriteFailed = errors.New("config write failed")
)

// PersistedConfig is the on-disk mirror of the policy registry.
type PersistedConfig struct {
	SchemaVersion int                     `json:"schema_version"`
	LastModified  time.Time               `json:"last_modified"`
	Services      map[string]policy.State `json:"services"`
}

// Validate checks the structural and semantic invariants of a loaded file.
// Violations are corruption, never coerced.
func (c *PersistedConfig) Validate() error {
	var result *multierror.Error

	if c.SchemaVersion != SchemaVersion {
		result = multierror.Append(result,
			fmt.Errorf("unsupported schema version %d (want %d)", c.SchemaVersion, SchemaVersion))
	}

	for id, state := range c.Services {
		if !state.Level.Valid() {
			result = multierror.Append(result,
				fmt.Errorf("service %q: invalid permission level %q", id, state.Level))
		}
	}

	return result.ErrorOrNil()
}

// Config configures a Store.
type Config struct {
	// Path is the config file location. Callers validate it against the
	// expected base directory (xfile.ResolveUnder) before constructing the
	// store.
	Path string `conf:"path" yaml:"path" json:"path"`

	// FileMode defaults to 0600. Owner-only access is best effort on
	// platforms without POSIX permission bits; there it is a documented
	// residual risk, not a silent downgrade of the format.
	FileMode os.FileMode `conf:"file_mode" yaml:"file_mode" json:"file_mode"`
}

// Store owns the config file and all I/O against it. Saves are serialized
// by an internal mutex; the atomic temp-and-rename discipline means a crash
// mid-write never leaves a half-written file at the target path.
type Store struct {
	fs   afero.Fs
	path string
	mode os.FileMode

	mu sync.Mutex
}

// New creates a Store over the given filesystem.
func New(fs afero.Fs, config Config) (*Store, error) {
	if config.Path == "" {
		return nil, errors.New("configstore: path is required")
	}

	mode := config.FileMode
	if mode == 0 {
		mode = 0o600
	}

	if err := fs.MkdirAll(filepath.Dir(config.Path), 0o700); err != nil {
		return nil, fmt.Errorf("configstore: create directory: %w", err)
	}

	return &Store{fs: fs, path: config.Path, mode: mode}, nil
}

// Path returns the config file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads and validates the persisted config. A missing file returns
// ErrNotFound. Unparseable or invalid content is moved aside with a
// timestamp suffix (never deleted) and reported as ErrCorrupt.
func (s *Store) Load(ctx context.Context) (*PersistedConfig, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}

		return nil, fmt.Errorf("configstore: read %s: %w", s.path, err)
	}

	var config PersistedConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, s.quarantine(ctx, err)
	}

	if err := config.Validate(); err != nil {
		return nil, s.quarantine(ctx, err)
	}

	return &config, nil
}

// quarantine renames the unreadable file aside so its content stays
// recoverable, then reports the corruption.
func (s *Store) quarantine(ctx context.Context, cause error) error {
	aside := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405Z"))

	if err := s.fs.Rename(s.path, aside); err != nil {
		log.Error(ctx, "failed to move corrupt config file aside",
			log.String("path", s.path),
			log.Cause(err),
		)

		return fmt.Errorf("%w: %v", ErrCorrupt, cause)
	}

	log.Warn(ctx, "moved corrupt config file aside",
		log.String("path", s.path),
		log.String("aside", aside),
		log.Cause(cause),
	)

	return fmt.Errorf("%w (moved aside to %s): %v", ErrCorrupt, aside, cause)
}

// Save writes the full config atomically: the content goes to a uniquely
// named temp file in the same directory, is synced, and then renamed over
// the target path. Concurrent saves are serialized.
func (s *Store) Save(ctx context.Context, config *PersistedConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	config.SchemaVersion = SchemaVersion
	config.LastModified = time.Now().UTC()

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrWriteFailed, err)
	}

	data = append(data, '\n')

	// The UUID suffix keeps temp names unique even for saves within the
	// same clock tick.
	tmp := fmt.Sprintf("%s.tmp-%s", s.path, uuid.NewString())

	if err := s.writeFile(tmp, data); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: rename: %v", ErrWriteFailed, err)
	}

	log.Debug(ctx, "persisted config",
		log.String("path", s.path),
		log.Int("services", len(config.Services)),
	)

	return nil
}

func (s *Store) writeFile(path string, data []byte) error {
	file, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.mode)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}
