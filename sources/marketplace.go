// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/xeipuuv/gojsonschema"

	"github.com/fastskill/fastskill-core/env"
	"github.com/fastskill/fastskill-core/registry/index"
	"github.com/fastskill/fastskill-core/validation/name"
)

// defaultMarketplaceTTL is how long a fetched marketplace document is
// served from cache before being re-fetched.
const defaultMarketplaceTTL = 5 * time.Minute

// maxFetchSize caps any single remote fetch (100MB), matching the registry
// client's download cap.
const maxFetchSize = 100 * 1024 * 1024

//go:embed marketplace_schema.json
var embeddedSchemaFS embed.FS

// marketplaceDocument is the manifest a git-hosted marketplace serves at
// marketplace.json, enumerating the skills the repository offers.
type marketplaceDocument struct {
	Name        string             `json:"name,omitempty"`
	Description string             `json:"description,omitempty"`
	Skills      []marketplaceSkill `json:"skills"`
}

type marketplaceSkill struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	License     string   `json:"license,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	DownloadURL string   `json:"download_url,omitempty"`
	Checksum    string   `json:"checksum,omitempty"`
}

// validateMarketplace checks raw marketplace JSON against the embedded schema.
func validateMarketplace(data []byte) error {
	schemaData, err := embeddedSchemaFS.ReadFile("marketplace_schema.json")
	if err != nil {
		return fmt.Errorf("reading embedded marketplace schema: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("marketplace schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("marketplace document is invalid: %s", strings.Join(msgs, "; "))
}

// marketplaceClient serves a git-hosted marketplace over its raw-content
// HTTP surface: the location is the base URL under which marketplace.json
// and the listed packages are reachable.
type marketplaceClient struct {
	def        Definition
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	ttl        time.Duration

	authHeader string
	authValue  string

	mu        sync.Mutex
	doc       *marketplaceDocument
	fetchedAt time.Time
}

var _ Client = (*marketplaceClient)(nil)

func newMarketplaceClient(def Definition, hc *http.Client, reader env.Reader, logger *slog.Logger, ttl time.Duration) (*marketplaceClient, error) {
	base, err := url.Parse(def.Location)
	if err != nil {
		return nil, fmt.Errorf("parsing marketplace URL: %w", err)
	}
	// Relative references resolve against the location as a directory.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &marketplaceClient{
		def:        def,
		baseURL:    base,
		httpClient: hc,
		logger:     logger,
		ttl:        ttl,
	}
	if def.Auth != nil {
		if def.Auth.Type == AuthSSH {
			// The raw-content surface is plain HTTP; SSH key material
			// cannot be attached to these requests.
			logger.Warn("ssh auth cannot be applied to marketplace HTTP requests, proceeding unauthenticated",
				"source", def.Name, "key_path", def.Auth.KeyPath)
		} else {
			c.authHeader, c.authValue, err = def.Auth.header(reader)
			if err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Definition implements Client.
func (c *marketplaceClient) Definition() Definition {
	return c.def
}

// ListSkills implements Client.
func (c *marketplaceClient) ListSkills(ctx context.Context) ([]string, error) {
	doc, err := c.document(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, s := range doc.Skills {
		id := name.Normalize(s.ID)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetVersions implements Client.
func (c *marketplaceClient) GetVersions(ctx context.Context, skillID string) ([]index.VersionEntry, error) {
	doc, err := c.document(ctx)
	if err != nil {
		return nil, err
	}

	entries := []index.VersionEntry{}
	for _, s := range doc.Skills {
		if name.Normalize(s.ID) != skillID {
			continue
		}
		entry := index.VersionEntry{
			SkillID:  skillID,
			Version:  s.Version,
			Checksum: s.Checksum,
		}
		if s.Description != "" || s.Author != "" || s.License != "" || len(s.Tags) > 0 {
			entry.Metadata = &index.EntryMetadata{
				Description: s.Description,
				Author:      s.Author,
				License:     s.License,
				Tags:        s.Tags,
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetSkill implements Client.
func (c *marketplaceClient) GetSkill(ctx context.Context, skillID, ver string) (index.VersionEntry, error) {
	entries, err := c.GetVersions(ctx, skillID)
	if err != nil {
		return index.VersionEntry{}, err
	}
	return pickVersion(entries, skillID, ver)
}

// Download implements Client. The download URL may be absolute or relative
// to the marketplace base; bytes are verified against the listed checksum
// when one is present.
func (c *marketplaceClient) Download(ctx context.Context, skillID, ver string) ([]byte, error) {
	doc, err := c.document(ctx)
	if err != nil {
		return nil, err
	}

	var found *marketplaceSkill
	for i, s := range doc.Skills {
		if name.Normalize(s.ID) == skillID && s.Version == ver {
			found = &doc.Skills[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s %s: %w", skillID, ver, ErrSkillNotFound)
	}
	if found.DownloadURL == "" {
		return nil, fmt.Errorf("%s %s has no download URL in marketplace", skillID, ver)
	}

	ref, err := url.Parse(found.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("parsing download URL for %s %s: %w", skillID, ver, err)
	}
	data, err := c.fetch(ctx, c.baseURL.ResolveReference(ref).String())
	if err != nil {
		return nil, fmt.Errorf("downloading %s %s: %w", skillID, ver, err)
	}

	if found.Checksum != "" {
		if got := digest.FromBytes(data).String(); got != found.Checksum {
			return nil, fmt.Errorf("downloading %s %s: listed %s, got %s", skillID, ver, found.Checksum, got)
		}
	}
	return data, nil
}

// document returns the marketplace manifest, fetching it at most once per
// TTL window.
func (c *marketplaceClient) document(ctx context.Context) (*marketplaceDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.doc, nil
	}

	ref, _ := url.Parse("marketplace.json")
	data, err := c.fetch(ctx, c.baseURL.ResolveReference(ref).String())
	if err != nil {
		// Serve a stale document over failing outright.
		if c.doc != nil {
			c.logger.Warn("serving stale marketplace document",
				"source", c.def.Name, "error", err)
			return c.doc, nil
		}
		return nil, fmt.Errorf("fetching marketplace for source %s: %w", c.def.Name, err)
	}

	if err := validateMarketplace(data); err != nil {
		return nil, fmt.Errorf("source %s: %w", c.def.Name, err)
	}

	var doc marketplaceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing marketplace for source %s: %w", c.def.Name, err)
	}

	c.doc = &doc
	c.fetchedAt = time.Now()
	return c.doc, nil
}

func (c *marketplaceClient) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.authHeader != "" {
		req.Header.Set(c.authHeader, c.authValue)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s for %s", resp.Status, rawURL)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response for %s: %w", rawURL, err)
	}
	if len(data) > maxFetchSize {
		return nil, fmt.Errorf("response for %s exceeds maximum size of %d bytes", rawURL, maxFetchSize)
	}
	return data, nil
}
