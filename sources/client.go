// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

//go:generate mockgen -source=client.go -destination=mocks/mock_client.go -package=mocks Client

import (
	"context"
	"fmt"

	"github.com/fastskill/fastskill-core/registry/index"
	"github.com/fastskill/fastskill-core/version"
)

// Client is the uniform capability set every source backend exposes.
type Client interface {
	// Definition returns the configuration this client was built from.
	Definition() Definition

	// ListSkills returns the ids of every skill the source offers.
	ListSkills(ctx context.Context) ([]string, error)

	// GetVersions returns all versions of one skill offered by the source.
	// A skill the source does not carry yields an empty slice.
	GetVersions(ctx context.Context, skillID string) ([]index.VersionEntry, error)

	// GetSkill returns one version of a skill; an empty version means the
	// highest available. Returns ErrSkillNotFound when absent.
	GetSkill(ctx context.Context, skillID, ver string) (index.VersionEntry, error)

	// Download fetches the package bytes for a skill version.
	Download(ctx context.Context, skillID, ver string) ([]byte, error)
}

// pickVersion implements the shared GetSkill contract over a GetVersions
// result: exact match when a version is named, otherwise the highest.
func pickVersion(entries []index.VersionEntry, skillID, ver string) (index.VersionEntry, error) {
	if ver != "" {
		for _, e := range entries {
			if e.Version == ver {
				return e, nil
			}
		}
		return index.VersionEntry{}, fmt.Errorf("%s %s: %w", skillID, ver, ErrSkillNotFound)
	}

	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		versions = append(versions, e.Version)
	}
	latest, err := version.Latest(versions)
	if err != nil {
		return index.VersionEntry{}, fmt.Errorf("%s: %w", skillID, ErrSkillNotFound)
	}
	for _, e := range entries {
		if e.Version == latest {
			return e, nil
		}
	}
	return index.VersionEntry{}, fmt.Errorf("%s: %w", skillID, ErrSkillNotFound)
}
