// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"

	"github.com/fastskill/fastskill-core/validation/name"
)

const (
	// defaultLockTimeout bounds how long a writer waits for another
	// publisher of the same skill before failing with ErrLockTimeout.
	defaultLockTimeout = 30 * time.Second

	// lockRetryInterval is how often a blocked writer re-attempts the lock.
	lockRetryInterval = 100 * time.Millisecond

	lockSuffix = ".lock"
)

// Manager reads and atomically updates per-skill index files under a root
// directory. It is safe for concurrent use by multiple goroutines and
// multiple processes sharing the same root.
type Manager struct {
	root        string
	lockTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLockTimeout overrides the default 30-second bound on waiting for a
// per-skill write lock.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.lockTimeout = d
	}
}

// WithLogger sets the logger used for index warnings (corrupt lines,
// retried lock attempts). Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager rooted at the given directory. The directory
// is created on first write, not here.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:        root,
		lockTimeout: defaultLockTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the index root within the given data home directory.
// This is the injectable, testable form. For the standard XDG location, use DefaultRoot.
func Root(dataHome string) string {
	return filepath.Join(dataHome, "fastskill", "index")
}

// DefaultRoot returns the default index root using XDG base directory conventions.
func DefaultRoot() string {
	return Root(xdg.DataHome)
}

// Path returns the index file path for a skill id. The id must be in
// "scope/name" form; use name.Normalize first for user-supplied input.
func (m *Manager) Path(skillID string) (string, error) {
	scoped, err := name.Parse(skillID)
	if err != nil {
		return "", fmt.Errorf("deriving index path: %w", err)
	}
	return filepath.Join(m.root, scoped.Scope, scoped.Name), nil
}

// ReadVersions returns all published versions of a skill, yanked entries
// included. A skill with no index file yields an empty slice, not an error.
//
// Reads take no locks: the file is only ever replaced by rename, so any
// open observes a complete snapshot. Unparsable lines are skipped with a
// warning so one torn or corrupt record cannot hide the rest.
func (m *Manager) ReadVersions(skillID string) ([]VersionEntry, error) {
	path, err := m.Path(skillID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []VersionEntry{}, nil
		}
		return nil, fmt.Errorf("opening index for %s: %w", skillID, err)
	}
	defer f.Close()

	var entries []VersionEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry VersionEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			m.logger.Warn("skipping corrupt index line",
				"skill", skillID, "line", line, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading index for %s: %w", skillID, err)
	}

	if entries == nil {
		entries = []VersionEntry{}
	}
	return entries, nil
}

// HasVersion reports whether the exact version is already published.
func (m *Manager) HasVersion(skillID, version string) (bool, error) {
	entries, err := m.ReadVersions(skillID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Version == version {
			return true, nil
		}
	}
	return false, nil
}

// AtomicUpdate applies fn to the skill's current entries under the
// per-skill write lock and replaces the index file with the result in a
// single rename. If fn returns an error the index is left untouched.
//
// The lock wait is bounded by the manager's lock timeout (and by ctx);
// exceeding it returns ErrLockTimeout.
func (m *Manager) AtomicUpdate(ctx context.Context, skillID string, fn func([]VersionEntry) ([]VersionEntry, error)) error {
	path, err := m.Path(skillID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	// The lock lives on a sidecar file so the index itself is never opened
	// for writing in place.
	lock := flock.New(path + lockSuffix)
	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("acquiring lock for %s: %w", skillID, ErrLockTimeout)
		}
		return fmt.Errorf("acquiring lock for %s: %w", skillID, err)
	}
	if !locked {
		return fmt.Errorf("acquiring lock for %s: %w", skillID, ErrLockTimeout)
	}
	defer lock.Unlock()

	// Re-read under the lock: the authoritative state is whatever the
	// previous lock holder renamed into place.
	entries, err := m.ReadVersions(skillID)
	if err != nil {
		return err
	}

	updated, err := fn(entries)
	if err != nil {
		return err
	}

	return m.writeEntries(path, updated)
}

// Publish appends a new version entry. Publishing a version that already
// exists returns ErrVersionConflict and leaves the index unchanged.
func (m *Manager) Publish(ctx context.Context, entry VersionEntry) error {
	// Cheap pre-check outside the lock to fail fast; the locked check
	// below is the authoritative one.
	if exists, err := m.HasVersion(entry.SkillID, entry.Version); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("publishing %s %s: %w", entry.SkillID, entry.Version, ErrVersionConflict)
	}

	err := m.AtomicUpdate(ctx, entry.SkillID, func(entries []VersionEntry) ([]VersionEntry, error) {
		for _, e := range entries {
			if e.Version == entry.Version {
				return nil, fmt.Errorf("publishing %s %s: %w", entry.SkillID, entry.Version, ErrVersionConflict)
			}
		}
		return append(entries, entry), nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("published version", "skill", entry.SkillID, "version", entry.Version)
	return nil
}

// Yank sets the yanked flag on an existing version in place. Entries are
// never removed from the index, so installs pinned to a yanked version keep
// working while fresh resolution skips it.
func (m *Manager) Yank(ctx context.Context, skillID, version string, yanked bool) error {
	return m.AtomicUpdate(ctx, skillID, func(entries []VersionEntry) ([]VersionEntry, error) {
		for i := range entries {
			if entries[i].Version == version {
				entries[i].Yanked = yanked
				return entries, nil
			}
		}
		return nil, fmt.Errorf("yanking %s %s: %w", skillID, version, ErrNotFound)
	})
}

// writeEntries serializes entries one JSON document per line into a temp
// file in the index directory, syncs it, and renames it over the index.
func (m *Manager) writeEntries(path string, entries []VersionEntry) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("encoding index entry: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("writing index entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing index file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting index file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}
