// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/fastskill/fastskill-core/manifest"
	"github.com/fastskill/fastskill-core/registry/index"
	"github.com/fastskill/fastskill-core/validation/name"
)

// localClient serves skills from a directory tree. Every directory that
// contains a SKILL.md is one skill; identity and version come from the
// frontmatter. No network I/O.
type localClient struct {
	def    Definition
	root   string
	logger *slog.Logger
}

var _ Client = (*localClient)(nil)

func newLocalClient(def Definition, logger *slog.Logger) (*localClient, error) {
	info, err := os.Stat(def.Location)
	if err != nil {
		return nil, fmt.Errorf("local source %s: %w", def.Name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local source %s: %s is not a directory", def.Name, def.Location)
	}
	return &localClient{def: def, root: def.Location, logger: logger}, nil
}

// Definition implements Client.
func (c *localClient) Definition() Definition {
	return c.def
}

// ListSkills implements Client.
func (c *localClient) ListSkills(_ context.Context) ([]string, error) {
	skills, err := c.scan()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(skills))
	for id := range skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetVersions implements Client.
func (c *localClient) GetVersions(_ context.Context, skillID string) ([]index.VersionEntry, error) {
	skills, err := c.scan()
	if err != nil {
		return nil, err
	}

	entries := []index.VersionEntry{}
	for _, s := range skills[skillID] {
		pkg, err := buildArchive(s.dir)
		if err != nil {
			return nil, err
		}
		entry := index.VersionEntry{
			SkillID:  skillID,
			Version:  s.fm.Version,
			Checksum: digest.FromBytes(pkg).String(),
		}
		if s.fm.Description != "" || s.fm.Author != "" || s.fm.License != "" || len(s.fm.Tags) > 0 {
			entry.Metadata = &index.EntryMetadata{
				Description:  s.fm.Description,
				Author:       s.fm.Author,
				License:      s.fm.License,
				Tags:         []string(s.fm.Tags),
				Capabilities: []string(s.fm.Capabilities),
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetSkill implements Client.
func (c *localClient) GetSkill(ctx context.Context, skillID, ver string) (index.VersionEntry, error) {
	entries, err := c.GetVersions(ctx, skillID)
	if err != nil {
		return index.VersionEntry{}, err
	}
	return pickVersion(entries, skillID, ver)
}

// Download implements Client. The package is built fresh from the skill
// directory; the archive construction is deterministic, so its checksum is
// stable as long as the files are.
func (c *localClient) Download(_ context.Context, skillID, ver string) ([]byte, error) {
	skills, err := c.scan()
	if err != nil {
		return nil, err
	}
	for _, s := range skills[skillID] {
		if s.fm.Version == ver {
			return buildArchive(s.dir)
		}
	}
	return nil, fmt.Errorf("%s %s: %w", skillID, ver, ErrSkillNotFound)
}

type localSkill struct {
	dir string
	fm  *manifest.Frontmatter
}

// scan walks the tree for SKILL.md files. Directories with unreadable or
// incomplete manifests are skipped with a warning rather than failing the
// whole source.
func (c *localClient) scan() (map[string][]localSkill, error) {
	skills := make(map[string][]localSkill)
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != manifest.FileName {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			c.logger.Warn("skipping unreadable skill manifest", "path", path, "error", err)
			return nil
		}
		fm, err := manifest.Parse(content)
		if err != nil {
			c.logger.Warn("skipping invalid skill manifest", "path", path, "error", err)
			return nil
		}
		if fm.Version == "" {
			c.logger.Warn("skipping skill without a version", "path", path)
			return nil
		}

		id := name.Normalize(fm.SkillID())
		if _, err := name.Parse(id); err != nil {
			c.logger.Warn("skipping skill with unscoped id", "path", path, "id", id)
			return nil
		}

		skills[id] = append(skills[id], localSkill{dir: filepath.Dir(path), fm: fm})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning local source %s: %w", c.def.Name, err)
	}
	return skills, nil
}

// buildArchive zips a skill directory deterministically: entries are
// sorted, timestamps zeroed, and paths slash-normalized, so the same files
// always produce the same bytes and therefore the same checksum.
func buildArchive(dir string) ([]byte, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking skill directory: %w", err)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, fmt.Errorf("resolving archive path: %w", err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   strings.ReplaceAll(rel, string(filepath.Separator), "/"),
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, fmt.Errorf("creating archive entry %s: %w", rel, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("writing archive entry %s: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return buf.Bytes(), nil
}
