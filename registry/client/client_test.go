// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fastskill/fastskill-core/env"
	"github.com/fastskill/fastskill-core/env/mocks"
	"github.com/fastskill/fastskill-core/logging"
	"github.com/fastskill/fastskill-core/registry/index"
)

func entryLine(t *testing.T, entry index.VersionEntry) string {
	t.Helper()
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	return string(data) + "\n"
}

func TestClient_FetchVersions(t *testing.T) {
	t.Parallel()

	entries := []index.VersionEntry{
		{SkillID: "acme/greeter", Version: "1.0.0", Checksum: "sha256:aa", PublishedAt: time.Now().UTC()},
		{SkillID: "acme/greeter", Version: "1.1.0", Checksum: "sha256:bb", PublishedAt: time.Now().UTC()},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/index/acme/greeter", r.URL.Path)
		for _, e := range entries {
			fmt.Fprint(w, entryLine(t, e))
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithLogger(logging.Discard()))
	require.NoError(t, err)

	got, err := c.FetchVersions(t.Context(), "acme/greeter")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1.0.0", got[0].Version)
	assert.Equal(t, "1.1.0", got[1].Version)
}

func TestClient_FetchVersions_NotFoundIsEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithLogger(logging.Discard()))
	require.NoError(t, err)

	got, err := c.FetchVersions(t.Context(), "acme/unpublished")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_FetchVersions_SkipsCorruptLines(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, entryLine(t, index.VersionEntry{SkillID: "acme/greeter", Version: "1.0.0"}))
		fmt.Fprintln(w, "{corrupt")
		fmt.Fprint(w, entryLine(t, index.VersionEntry{SkillID: "acme/greeter", Version: "1.1.0"}))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithLogger(logging.Discard()))
	require.NoError(t, err)

	got, err := c.FetchVersions(t.Context(), "acme/greeter")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestClient_FetchVersions_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, entryLine(t, index.VersionEntry{SkillID: "acme/greeter", Version: "1.0.0"}))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithLogger(logging.Discard()))
	require.NoError(t, err)

	got, err := c.FetchVersions(t.Context(), "acme/greeter")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_FetchVersions_ClientErrorIsPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithLogger(logging.Discard()))
	require.NoError(t, err)

	_, err = c.FetchVersions(t.Context(), "acme/greeter")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestClient_Download(t *testing.T) {
	t.Parallel()

	pkg := []byte("zip bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/packages/acme/greeter/greeter-1.0.0.zip", r.URL.Path)
		w.Write(pkg)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithLogger(logging.Discard()))
	require.NoError(t, err)

	entry := index.VersionEntry{
		SkillID:  "acme/greeter",
		Version:  "1.0.0",
		Checksum: digest.FromBytes(pkg).String(),
	}
	got, err := c.Download(t.Context(), entry)
	require.NoError(t, err)
	assert.Equal(t, pkg, got)
}

func TestClient_Download_PrefersRecordedURL(t *testing.T) {
	t.Parallel()

	pkg := []byte("zip bytes")
	blobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blobs/acme/greeter/greeter-1.0.0.zip", r.URL.Path)
		w.Write(pkg)
	}))
	defer blobSrv.Close()

	registrySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer registrySrv.Close()

	c, err := New(registrySrv.URL, WithLogger(logging.Discard()))
	require.NoError(t, err)

	entry := index.VersionEntry{
		SkillID:     "acme/greeter",
		Version:     "1.0.0",
		Checksum:    digest.FromBytes(pkg).String(),
		DownloadURL: blobSrv.URL + "/blobs/acme/greeter/greeter-1.0.0.zip",
	}
	got, err := c.Download(t.Context(), entry)
	require.NoError(t, err)
	assert.Equal(t, pkg, got)
}

func TestClient_Download_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not what was published"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithLogger(logging.Discard()))
	require.NoError(t, err)

	entry := index.VersionEntry{
		SkillID:  "acme/greeter",
		Version:  "1.0.0",
		Checksum: digest.FromBytes([]byte("original")).String(),
	}
	_, err = c.Download(t.Context(), entry)
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestClient_AuthHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		fmt.Fprint(w, entryLine(t, index.VersionEntry{SkillID: "acme/greeter", Version: "1.0.0"}))
	}))
	defer srv.Close()

	// The credential is read from the environment per request, never
	// cached on the client.
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockReader(ctrl)
	reader.EXPECT().Getenv("REGISTRY_TOKEN").Return("s3cret").Times(2)

	c, err := New(srv.URL,
		WithLogger(logging.Discard()),
		WithEnvReader(reader),
		WithAuthHeader("Authorization", "REGISTRY_TOKEN", "Bearer "))
	require.NoError(t, err)

	_, err = c.FetchVersions(t.Context(), "acme/greeter")
	require.NoError(t, err)
	_, err = c.FetchVersions(t.Context(), "acme/greeter")
	require.NoError(t, err)
}

func TestClient_AuthHeader_MissingSecret(t *testing.T) {
	t.Parallel()

	c, err := New("https://registry.example.com",
		WithLogger(logging.Discard()),
		WithEnvReader(env.MapReader{}),
		WithAuthHeader("Authorization", "REGISTRY_TOKEN", "Bearer "))
	require.NoError(t, err)

	_, err = c.FetchVersions(t.Context(), "acme/greeter")
	require.ErrorContains(t, err, "REGISTRY_TOKEN is not set")
}

func TestClient_AuthHeader_RejectsControlCharacters(t *testing.T) {
	t.Parallel()

	c, err := New("https://registry.example.com",
		WithLogger(logging.Discard()),
		WithEnvReader(env.MapReader{"REGISTRY_TOKEN": "bad\r\nvalue"}),
		WithAuthHeader("Authorization", "REGISTRY_TOKEN", "Bearer "))
	require.NoError(t, err)

	_, err = c.FetchVersions(t.Context(), "acme/greeter")
	require.ErrorContains(t, err, "not a valid header value")
}

func TestNew_RejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := New("ftp://registry.example.com")
	require.ErrorContains(t, err, "http or https")
}
