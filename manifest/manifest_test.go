// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	content := []byte(`---
id: web-scraper
name: Web Scraper
description: Scrapes web pages
version: 1.2.0
author: acme
tags:
  - web
  - scraping
capabilities: fetch, parse
dependencies:
  acme/http-client: "^2.0.0"
features:
  proxy:
    - rate-limit
---

# Web Scraper

Instructions here.
`)

	fm, err := Parse(content)
	require.NoError(t, err)

	assert.Equal(t, "web-scraper", fm.ID)
	assert.Equal(t, "Web Scraper", fm.Name)
	assert.Equal(t, "Scrapes web pages", fm.Description)
	assert.Equal(t, "1.2.0", fm.Version)
	assert.Equal(t, "acme", fm.Author)
	assert.Equal(t, []string{"web", "scraping"}, []string(fm.Tags))
	assert.Equal(t, []string{"fetch", "parse"}, []string(fm.Capabilities))
	assert.Equal(t, map[string]string{"acme/http-client": "^2.0.0"}, fm.Dependencies)
	assert.Equal(t, map[string][]string{"proxy": {"rate-limit"}}, fm.Features)
	assert.Equal(t, "web-scraper", fm.SkillID())
}

func TestParse_NameFallbackID(t *testing.T) {
	t.Parallel()

	fm, err := Parse([]byte("---\nname: tool\ndescription: d\n---\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "tool", fm.SkillID())
}

func TestParse_MissingFrontmatter(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("# Just markdown"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with YAML frontmatter")
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("---\nname: tool\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing closing delimiter")
}

func TestParse_MissingName(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("---\ndescription: d\n---\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestParse_OversizedFrontmatter(t *testing.T) {
	t.Parallel()

	huge := "---\nname: tool\npadding: " + strings.Repeat("x", maxFrontmatterSize) + "\n---\n"
	_, err := Parse([]byte(huge))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum size")
}

func TestStringOrSlice_Scalar(t *testing.T) {
	t.Parallel()

	fm, err := Parse([]byte("---\nname: t\ntags: one two three\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, []string(fm.Tags))

	fm, err = Parse([]byte("---\nname: t\ntags: \"a, b\"\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string(fm.Tags))
}
