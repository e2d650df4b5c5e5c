// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `---
id: acme/greeter
name: greeter
description: Says hello
version: 1.0.0
---

# Greeter
`

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestInspect_ValidPackage(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{
		"SKILL.md":      validManifest,
		"scripts/run":   "#!/bin/sh\necho hi\n",
		"docs/USAGE.md": "usage",
	})

	fm, err := Inspect(data, 0)
	require.NoError(t, err)
	assert.Equal(t, "acme/greeter", fm.SkillID())
	assert.Equal(t, "1.0.0", fm.Version)
}

func TestInspect_MissingManifest(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{"README.md": "no manifest here"})
	_, err := Inspect(data, 0)
	require.ErrorIs(t, err, ErrManifestMissing)
}

func TestInspect_NestedManifestDoesNotCount(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{"sub/SKILL.md": validManifest})
	_, err := Inspect(data, 0)
	require.ErrorIs(t, err, ErrManifestMissing)
}

func TestInspect_PathTraversal(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{
		"SKILL.md":      validManifest,
		"../../evil.sh": "rm -rf /",
	})
	_, err := Inspect(data, 0)
	require.ErrorContains(t, err, "path traversal")
}

func TestInspect_AbsolutePath(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{
		"SKILL.md":      validManifest,
		"/etc/cron.d/x": "boom",
	})
	_, err := Inspect(data, 0)
	require.ErrorContains(t, err, "absolute path")
}

func TestInspect_FileTooLarge(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{
		"SKILL.md": validManifest,
		"big.bin":  string(bytes.Repeat([]byte("a"), 2048)),
	})
	_, err := Inspect(data, 1024)
	require.ErrorContains(t, err, "exceeds maximum size")
}

func TestInspect_BadFrontmatter(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{"SKILL.md": "no frontmatter fences"})
	_, err := Inspect(data, 0)
	require.ErrorContains(t, err, "parsing SKILL.md")
}

func TestInspect_NotAZip(t *testing.T) {
	t.Parallel()

	_, err := Inspect([]byte("this is not a zip archive"), 0)
	require.ErrorContains(t, err, "opening package archive")
}
