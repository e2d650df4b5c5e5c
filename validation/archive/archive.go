// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package archive validates uploaded skill packages before publication.
//
// Packages are zip archives. Inspect enforces the safety rules (no path
// traversal, no absolute paths, no links, bounded file sizes), requires the
// SKILL.md manifest at the archive root, and returns the parsed frontmatter
// for downstream checks.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/fastskill/fastskill-core/manifest"
)

// MaxFileSize is the maximum size of a single file in a package (100MB).
// This prevents decompression bombs.
const MaxFileSize = 100 * 1024 * 1024

// ErrManifestMissing is returned when a package has no SKILL.md at its root.
var ErrManifestMissing = errors.New("package is missing " + manifest.FileName)

// Inspect validates the zip archive in data and returns the parsed SKILL.md
// frontmatter. It fails on unsafe entry paths, link entries, files larger
// than maxFileSize (0 means MaxFileSize), a missing root SKILL.md, or
// frontmatter that does not parse.
func Inspect(data []byte, maxFileSize int64) (*manifest.Frontmatter, error) {
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSize
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening package archive: %w", err)
	}

	var fm *manifest.Frontmatter
	for _, f := range zr.File {
		if err := validateEntryPath(f.Name); err != nil {
			return nil, err
		}

		mode := f.Mode()
		if mode.IsDir() {
			continue
		}
		if mode&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("archive contains disallowed link entry: %s", f.Name)
		}
		if !mode.IsRegular() {
			return nil, fmt.Errorf("archive contains disallowed entry type: %s", f.Name)
		}
		if f.UncompressedSize64 > uint64(maxFileSize) {
			return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", f.Name, maxFileSize)
		}

		if path.Clean(f.Name) != manifest.FileName {
			continue
		}

		content, err := readEntry(f, maxFileSize)
		if err != nil {
			return nil, err
		}
		fm, err = manifest.Parse(content)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", manifest.FileName, err)
		}
	}

	if fm == nil {
		return nil, ErrManifestMissing
	}
	return fm, nil
}

// readEntry reads one archive entry, enforcing the limit during the read so
// a lying size header cannot bypass it.
func readEntry(f *zip.File, maxFileSize int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading archive entry %s: %w", f.Name, err)
	}
	if int64(len(content)) > maxFileSize {
		return nil, fmt.Errorf("file %s exceeds maximum size of %d bytes", f.Name, maxFileSize)
	}
	return content, nil
}

// validateEntryPath checks that an archive entry path is safe.
func validateEntryPath(p string) error {
	// path.Clean resolves all ".." segments; any remaining leading ".."
	// means the path escapes the archive root.
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("path traversal detected in archive: %s", p)
	}
	if path.IsAbs(cleaned) || strings.HasPrefix(p, `\`) {
		return fmt.Errorf("absolute path not allowed in archive: %s", p)
	}
	return nil
}
