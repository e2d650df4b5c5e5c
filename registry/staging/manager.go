// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/fastskill/fastskill-core/validation/name"
	"github.com/fastskill/fastskill-core/version"
)

const metadataFile = "metadata.json"

// ErrJobNotFound is returned when no staged upload matches a job id.
var ErrJobNotFound = errors.New("staging job not found")

// Manager stores uploaded packages and their validation records under a
// root directory.
type Manager struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// withClock overrides the record timestamp source in tests.
func withClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager rooted at the given directory.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:   root,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the staging root within the given data home directory.
// This is the injectable, testable form. For the standard XDG location, use DefaultRoot.
func Root(dataHome string) string {
	return filepath.Join(dataHome, "fastskill", "staging")
}

// DefaultRoot returns the default staging root using XDG base directory conventions.
func DefaultRoot() string {
	return Root(xdg.DataHome)
}

// StorePackage stages an uploaded package and returns its pending record.
// The skill id must be a valid scoped name and the version valid semver; the
// package bytes are stored as-is and hashed for the record checksum.
//
// Re-uploading the same skill and version replaces the previous staged copy.
func (m *Manager) StorePackage(skillID, ver string, pkg []byte, uploadedBy string) (*Record, error) {
	scoped, err := name.Parse(skillID)
	if err != nil {
		return nil, fmt.Errorf("staging package: %w", err)
	}
	if err := version.Validate(ver); err != nil {
		return nil, fmt.Errorf("staging package: %w", err)
	}

	dir := m.versionDir(scoped, ver)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, packageName(scoped, ver)), pkg, 0o644); err != nil {
		return nil, fmt.Errorf("writing staged package: %w", err)
	}

	record := &Record{
		JobID:      newJobID(),
		SkillID:    scoped.String(),
		Version:    ver,
		Checksum:   digest.FromBytes(pkg).String(),
		UploadedAt: m.now().UTC(),
		UploadedBy: uploadedBy,
		Status:     StatusPending,
	}
	if err := m.writeRecord(record); err != nil {
		return nil, err
	}

	m.logger.Info("staged package",
		"job", record.JobID, "skill", record.SkillID, "version", record.Version)
	return record, nil
}

// LoadRecord finds a staged record by job id.
func (m *Manager) LoadRecord(jobID string) (*Record, error) {
	var found *Record
	err := m.walkRecords(func(r *Record) bool {
		if r.JobID == jobID {
			found = r
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("loading job %s: %w", jobID, ErrJobNotFound)
	}
	return found, nil
}

// UpdateRecord rewrites the record's metadata.json in place (temp file then
// rename, so a crash never leaves a torn record).
func (m *Manager) UpdateRecord(record *Record) error {
	return m.writeRecord(record)
}

// PackagePath returns the filesystem path of the staged package for a record.
func (m *Manager) PackagePath(record *Record) (string, error) {
	scoped, err := name.Parse(record.SkillID)
	if err != nil {
		return "", fmt.Errorf("locating staged package: %w", err)
	}
	return filepath.Join(m.versionDir(scoped, record.Version), packageName(scoped, record.Version)), nil
}

// PendingJobs returns all records with status pending, oldest upload first.
func (m *Manager) PendingJobs() ([]*Record, error) {
	var pending []*Record
	err := m.walkRecords(func(r *Record) bool {
		if r.Status == StatusPending {
			pending = append(pending, r)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].UploadedAt.Before(pending[j].UploadedAt)
	})
	return pending, nil
}

// Remove deletes a staged upload's directory, package included. Terminal
// records are normally kept for audit; Remove is for explicit cleanup.
func (m *Manager) Remove(record *Record) error {
	scoped, err := name.Parse(record.SkillID)
	if err != nil {
		return fmt.Errorf("removing staged package: %w", err)
	}
	if err := os.RemoveAll(m.versionDir(scoped, record.Version)); err != nil {
		return fmt.Errorf("removing staged package: %w", err)
	}
	return nil
}

func (m *Manager) versionDir(scoped name.ScopedName, ver string) string {
	return filepath.Join(m.root, scoped.Scope, scoped.Name, ver)
}

func packageName(scoped name.ScopedName, ver string) string {
	return fmt.Sprintf("%s-%s.zip", scoped.Name, ver)
}

func newJobID() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (m *Manager) writeRecord(record *Record) error {
	scoped, err := name.Parse(record.SkillID)
	if err != nil {
		return fmt.Errorf("writing staging record: %w", err)
	}
	dir := m.versionDir(scoped, record.Version)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding staging record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*")
	if err != nil {
		return fmt.Errorf("creating staging record: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing staging record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing staging record: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting staging record mode: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("replacing staging record: %w", err)
	}
	return nil
}

// walkRecords visits every metadata.json under the root. Unreadable or
// unparsable records are skipped with a warning. The visit function returns
// false to stop early.
func (m *Manager) walkRecords(visit func(*Record) bool) error {
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || d.Name() != metadataFile {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			m.logger.Warn("skipping unreadable staging record", "path", path, "error", err)
			return nil
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			m.logger.Warn("skipping corrupt staging record", "path", path, "error", err)
			return nil
		}
		if !visit(&record) {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning staging records: %w", err)
	}
	return nil
}
