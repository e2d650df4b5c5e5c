// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package blob provides long-term storage for accepted skill packages.
//
// Accepted uploads are copied out of staging into blob storage, which is
// what index download URLs point at. The Storage interface keeps the
// backend pluggable; the filesystem implementation covers single-host
// deployments.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/fastskill/fastskill-core/validation/name"
)

//go:generate mockgen -source=blob.go -destination=mocks/mock_storage.go -package=mocks Storage

// ErrBlobNotFound is returned when no stored package matches a skill version.
var ErrBlobNotFound = errors.New("package blob not found")

// Storage stores and serves accepted skill packages.
type Storage interface {
	// Store persists the package bytes for a skill version and returns its
	// download URL. Storing the same version again overwrites it.
	Store(ctx context.Context, skillID, version string, r io.Reader) (string, error)

	// Open returns a reader over a stored package.
	Open(ctx context.Context, skillID, version string) (io.ReadCloser, error)

	// URL returns the download URL a stored package would have, without
	// checking existence.
	URL(skillID, version string) (string, error)
}

// FilesystemStorage implements Storage on a local directory tree laid out as
// {root}/{scope}/{name}/{name}-{version}.zip.
type FilesystemStorage struct {
	root    string
	baseURL string
}

var _ Storage = (*FilesystemStorage)(nil)

// NewFilesystemStorage creates filesystem-backed storage rooted at root.
// baseURL, when non-empty, is the public prefix for download URLs (for a
// registry fronted by a file server); when empty, URLs use the file scheme.
func NewFilesystemStorage(root, baseURL string) *FilesystemStorage {
	return &FilesystemStorage{root: root, baseURL: baseURL}
}

// Store implements Storage.
func (s *FilesystemStorage) Store(_ context.Context, skillID, version string, r io.Reader) (string, error) {
	rel, err := blobPath(skillID, version)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".blob-*")
	if err != nil {
		return "", fmt.Errorf("creating blob file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("syncing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("setting blob mode: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("storing blob: %w", err)
	}

	return s.URL(skillID, version)
}

// Open implements Storage.
func (s *FilesystemStorage) Open(_ context.Context, skillID, version string) (io.ReadCloser, error) {
	rel, err := blobPath(skillID, version)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("opening blob for %s %s: %w", skillID, version, ErrBlobNotFound)
		}
		return nil, fmt.Errorf("opening blob for %s %s: %w", skillID, version, err)
	}
	return f, nil
}

// URL implements Storage.
func (s *FilesystemStorage) URL(skillID, version string) (string, error) {
	rel, err := blobPath(skillID, version)
	if err != nil {
		return "", err
	}
	if s.baseURL != "" {
		base, err := url.Parse(s.baseURL)
		if err != nil {
			return "", fmt.Errorf("parsing blob base URL: %w", err)
		}
		base.Path = path.Join(base.Path, rel)
		return base.String(), nil
	}
	abs, err := filepath.Abs(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", fmt.Errorf("resolving blob path: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// blobPath returns the slash-separated storage key for a skill version.
func blobPath(skillID, version string) (string, error) {
	scoped, err := name.Parse(skillID)
	if err != nil {
		return "", fmt.Errorf("deriving blob path: %w", err)
	}
	return path.Join(scoped.Scope, scoped.Name,
		fmt.Sprintf("%s-%s.zip", scoped.Name, version)), nil
}
