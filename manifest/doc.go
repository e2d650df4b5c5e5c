// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package manifest parses SKILL.md skill manifests.
//
// A skill manifest is a Markdown document whose YAML frontmatter (between
// "---" fences) declares the skill's identity and metadata. The frontmatter
// is the authoritative source for a skill's name, version, and description
// in every source backend and in the publish pipeline.
package manifest
