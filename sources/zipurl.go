// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/fastskill/fastskill-core/env"
	"github.com/fastskill/fastskill-core/registry/index"
	"github.com/fastskill/fastskill-core/validation/archive"
	"github.com/fastskill/fastskill-core/validation/name"
)

// zipURLClient serves a single skill published as one zip archive at a
// fixed URL. The skill's identity and version come from the SKILL.md inside
// the archive, so the catalog is exactly one entry.
type zipURLClient struct {
	def        Definition
	httpClient *http.Client
	logger     *slog.Logger
	ttl        time.Duration

	authHeader string
	authValue  string

	mu        sync.Mutex
	pkg       []byte
	entry     *index.VersionEntry
	fetchedAt time.Time
}

var _ Client = (*zipURLClient)(nil)

func newZipURLClient(def Definition, hc *http.Client, reader env.Reader, logger *slog.Logger, ttl time.Duration) (*zipURLClient, error) {
	if _, err := url.Parse(def.Location); err != nil {
		return nil, fmt.Errorf("parsing zip URL: %w", err)
	}

	c := &zipURLClient{
		def:        def,
		httpClient: hc,
		logger:     logger,
		ttl:        ttl,
	}
	if def.Auth != nil {
		var err error
		c.authHeader, c.authValue, err = def.Auth.header(reader)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Definition implements Client.
func (c *zipURLClient) Definition() Definition {
	return c.def
}

// ListSkills implements Client.
func (c *zipURLClient) ListSkills(ctx context.Context) ([]string, error) {
	entry, _, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return []string{entry.SkillID}, nil
}

// GetVersions implements Client.
func (c *zipURLClient) GetVersions(ctx context.Context, skillID string) ([]index.VersionEntry, error) {
	entry, _, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if entry.SkillID != skillID {
		return []index.VersionEntry{}, nil
	}
	return []index.VersionEntry{*entry}, nil
}

// GetSkill implements Client.
func (c *zipURLClient) GetSkill(ctx context.Context, skillID, ver string) (index.VersionEntry, error) {
	entries, err := c.GetVersions(ctx, skillID)
	if err != nil {
		return index.VersionEntry{}, err
	}
	return pickVersion(entries, skillID, ver)
}

// Download implements Client.
func (c *zipURLClient) Download(ctx context.Context, skillID, ver string) ([]byte, error) {
	entry, pkg, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if entry.SkillID != skillID || entry.Version != ver {
		return nil, fmt.Errorf("%s %s: %w", skillID, ver, ErrSkillNotFound)
	}
	return pkg, nil
}

// load fetches and inspects the archive, caching the result per TTL window.
func (c *zipURLClient) load(ctx context.Context) (*index.VersionEntry, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.entry, c.pkg, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.def.Location, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	if c.authHeader != "" {
		req.Header.Set(c.authHeader, c.authValue)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.entry != nil {
			c.logger.Warn("serving stale zip package", "source", c.def.Name, "error", err)
			return c.entry, c.pkg, nil
		}
		return nil, nil, fmt.Errorf("fetching zip for source %s: %w", c.def.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetching zip for source %s: unexpected status %s", c.def.Name, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("reading zip for source %s: %w", c.def.Name, err)
	}
	if len(data) > maxFetchSize {
		return nil, nil, fmt.Errorf("zip for source %s exceeds maximum size of %d bytes", c.def.Name, maxFetchSize)
	}

	fm, err := archive.Inspect(data, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("source %s: %w", c.def.Name, err)
	}
	if fm.Version == "" {
		return nil, nil, fmt.Errorf("source %s: %s does not declare a version", c.def.Name, fm.SkillID())
	}

	entry := &index.VersionEntry{
		SkillID:  name.Normalize(fm.SkillID()),
		Version:  fm.Version,
		Checksum: digest.FromBytes(data).String(),
	}
	if fm.Description != "" || fm.Author != "" || fm.License != "" || len(fm.Tags) > 0 {
		entry.Metadata = &index.EntryMetadata{
			Description:  fm.Description,
			Author:       fm.Author,
			License:      fm.License,
			Tags:         []string(fm.Tags),
			Capabilities: []string(fm.Capabilities),
		}
	}

	c.entry = entry
	c.pkg = data
	c.fetchedAt = time.Now()
	return c.entry, c.pkg, nil
}
