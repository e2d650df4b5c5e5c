// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStorage_StoreAndOpen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewFilesystemStorage(root, "")

	url, err := store.Store(t.Context(), "acme/greeter", "1.0.0", bytes.NewReader([]byte("pkg")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"), "url %q", url)
	assert.True(t, strings.HasSuffix(url, "acme/greeter/greeter-1.0.0.zip"), "url %q", url)

	_, err = os.Stat(filepath.Join(root, "acme", "greeter", "greeter-1.0.0.zip"))
	require.NoError(t, err)

	rc, err := store.Open(t.Context(), "acme/greeter", "1.0.0")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("pkg"), data)
}

func TestFilesystemStorage_StoreOverwrites(t *testing.T) {
	t.Parallel()

	store := NewFilesystemStorage(t.TempDir(), "")
	_, err := store.Store(t.Context(), "acme/greeter", "1.0.0", strings.NewReader("old"))
	require.NoError(t, err)
	_, err = store.Store(t.Context(), "acme/greeter", "1.0.0", strings.NewReader("new"))
	require.NoError(t, err)

	rc, err := store.Open(t.Context(), "acme/greeter", "1.0.0")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFilesystemStorage_Open_Missing(t *testing.T) {
	t.Parallel()

	store := NewFilesystemStorage(t.TempDir(), "")
	_, err := store.Open(t.Context(), "acme/greeter", "1.0.0")
	require.ErrorIs(t, err, ErrBlobNotFound)
}

func TestFilesystemStorage_URL_WithBase(t *testing.T) {
	t.Parallel()

	store := NewFilesystemStorage(t.TempDir(), "https://pkgs.example.com/blobs")
	url, err := store.URL("acme/greeter", "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "https://pkgs.example.com/blobs/acme/greeter/greeter-1.2.3.zip", url)
}

func TestFilesystemStorage_InvalidSkillID(t *testing.T) {
	t.Parallel()

	store := NewFilesystemStorage(t.TempDir(), "")
	_, err := store.Store(t.Context(), "../escape", "1.0.0", strings.NewReader("x"))
	require.Error(t, err)
}
