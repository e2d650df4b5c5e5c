// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fastskill/fastskill-core/env"
	"github.com/fastskill/fastskill-core/registry/client"
	"github.com/fastskill/fastskill-core/registry/index"
)

// registryClient adapts the HTTP registry read client to the source Client
// capability set. It is the only backend that talks to this system's own
// publish pipeline.
type registryClient struct {
	def   Definition
	inner *client.Client
}

var _ Client = (*registryClient)(nil)

func newRegistryClient(def Definition, hc *http.Client, reader env.Reader, logger *slog.Logger) (*registryClient, error) {
	opts := []client.Option{
		client.WithHTTPClient(hc),
		client.WithEnvReader(reader),
		client.WithLogger(logger),
	}
	if def.Auth != nil {
		switch def.Auth.Type {
		case AuthPAT:
			opts = append(opts, client.WithAuthHeader("Authorization", def.Auth.TokenEnv, "Bearer "))
		case AuthAPIKey:
			header := def.Auth.Header
			if header == "" {
				header = "X-API-Key"
			}
			opts = append(opts, client.WithAuthHeader(header, def.Auth.TokenEnv, ""))
		default:
			return nil, fmt.Errorf("registry source %s: auth type %q is not supported", def.Name, def.Auth.Type)
		}
	}

	inner, err := client.New(def.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("registry source %s: %w", def.Name, err)
	}
	return &registryClient{def: def, inner: inner}, nil
}

// Definition implements Client.
func (c *registryClient) Definition() Definition {
	return c.def
}

// ListSkills implements Client.
func (c *registryClient) ListSkills(ctx context.Context) ([]string, error) {
	return c.inner.ListSkills(ctx)
}

// GetVersions implements Client. Yanked versions are excluded: they stay in
// the registry index for existing installs but are not offered to fresh
// resolution.
func (c *registryClient) GetVersions(ctx context.Context, skillID string) ([]index.VersionEntry, error) {
	all, err := c.inner.FetchVersions(ctx, skillID)
	if err != nil {
		return nil, err
	}
	entries := make([]index.VersionEntry, 0, len(all))
	for _, e := range all {
		if !e.Yanked {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// GetSkill implements Client.
func (c *registryClient) GetSkill(ctx context.Context, skillID, ver string) (index.VersionEntry, error) {
	entries, err := c.GetVersions(ctx, skillID)
	if err != nil {
		return index.VersionEntry{}, err
	}
	return pickVersion(entries, skillID, ver)
}

// Download implements Client. The registry client verifies the bytes
// against the index checksum before returning them.
func (c *registryClient) Download(ctx context.Context, skillID, ver string) ([]byte, error) {
	entry, err := c.GetSkill(ctx, skillID, ver)
	if err != nil {
		return nil, err
	}
	return c.inner.Download(ctx, entry)
}
