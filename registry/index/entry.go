// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package index

import "time"

// VersionEntry is one published version of a skill: a single line in the
// skill's index file.
type VersionEntry struct {
	// SkillID is the scoped skill identifier, e.g. "acme/greeter".
	SkillID string `json:"skill_id"`

	// Version is the semantic version string, without a "v" prefix.
	Version string `json:"version"`

	// Checksum is the package digest in canonical "sha256:<hex>" form.
	Checksum string `json:"checksum"`

	// Dependencies lists the skills this version requires.
	Dependencies []Dependency `json:"dependencies,omitempty"`

	// Features maps each optional feature to the features it enables.
	Features map[string][]string `json:"features,omitempty"`

	// DownloadURL is where the package blob for this version is served.
	DownloadURL string `json:"download_url,omitempty"`

	// PublishedAt records when the version was accepted into the index.
	PublishedAt time.Time `json:"published_at"`

	// Yanked marks a version as withdrawn. Yanked entries stay in the
	// index so existing lockfiles keep resolving; they are excluded from
	// fresh resolution.
	Yanked bool `json:"yanked"`

	// Metadata carries display fields copied from the skill manifest.
	Metadata *EntryMetadata `json:"metadata,omitempty"`
}

// Dependency names one required skill and the version constraint it must
// satisfy.
type Dependency struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint"`
}

// EntryMetadata holds manifest fields surfaced through the index so
// clients can render listings without downloading packages.
type EntryMetadata struct {
	Description  string   `json:"description,omitempty"`
	Author       string   `json:"author,omitempty"`
	License      string   `json:"license,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}
