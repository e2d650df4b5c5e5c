// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client implements the read side of the HTTP registry protocol:
// fetching per-skill version indexes and downloading published packages.
//
// Transient failures (429 and 5xx responses, transport errors) are retried
// with exponential backoff; 4xx responses are permanent. A missing index is
// not an error: a skill nobody has published yet simply has no versions.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/opencontainers/go-digest"
	"golang.org/x/net/http/httpguts"

	"github.com/fastskill/fastskill-core/env"
	"github.com/fastskill/fastskill-core/httperr"
	"github.com/fastskill/fastskill-core/registry/index"
	"github.com/fastskill/fastskill-core/validation/name"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxTries = 4

	// maxPackageSize caps a single package download (100MB).
	maxPackageSize = 100 * 1024 * 1024
)

// ErrChecksumMismatch is returned when downloaded package bytes do not hash
// to the checksum recorded in the index.
var ErrChecksumMismatch = errors.New("package checksum mismatch")

// Client talks to one HTTP registry.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	envReader  env.Reader
	logger     *slog.Logger
	maxTries   uint

	authHeader string
	authEnvVar string
	authPrefix string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEnvReader sets the environment reader used to resolve credentials.
// Defaults to the process environment.
func WithEnvReader(r env.Reader) Option {
	return func(c *Client) {
		c.envReader = r
	}
}

// WithAuthHeader attaches a credential to every request. The credential is
// read from the named environment variable at request time and sent as
// "<prefix><value>" in the given header, e.g.
//
//	WithAuthHeader("Authorization", "REGISTRY_TOKEN", "Bearer ")
func WithAuthHeader(header, envVar, prefix string) Option {
	return func(c *Client) {
		c.authHeader = header
		c.authEnvVar = envVar
		c.authPrefix = prefix
	}
}

// WithMaxTries overrides the retry budget for transient failures.
func WithMaxTries(n uint) Option {
	return func(c *Client) {
		c.maxTries = n
	}
}

// New creates a registry client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing registry URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("registry URL must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		envReader:  &env.OSReader{},
		logger:     slog.Default(),
		maxTries:   defaultMaxTries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListSkills retrieves the ids of every published skill from the registry's
// catalog endpoint. A 404 means the registry has no catalog yet and yields
// an empty slice.
func (c *Client) ListSkills(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "skills")
	if err != nil {
		if httperr.IsNotFound(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing skills: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("parsing skill catalog: %w", err)
	}
	return ids, nil
}

// FetchVersions retrieves the published versions of a skill from the
// registry's index endpoint. A 404 means the skill has never been
// published and yields an empty slice.
func (c *Client) FetchVersions(ctx context.Context, skillID string) ([]index.VersionEntry, error) {
	scoped, err := name.Parse(skillID)
	if err != nil {
		return nil, fmt.Errorf("fetching versions: %w", err)
	}

	body, err := c.get(ctx, path.Join("index", scoped.Scope, scoped.Name))
	if err != nil {
		if httperr.IsNotFound(err) {
			return []index.VersionEntry{}, nil
		}
		return nil, fmt.Errorf("fetching versions for %s: %w", skillID, err)
	}

	entries := []index.VersionEntry{}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry index.VersionEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			c.logger.Warn("skipping corrupt index line from registry",
				"skill", skillID, "line", line, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading index for %s: %w", skillID, err)
	}
	return entries, nil
}

// Download fetches the package for an index entry and verifies its bytes
// against the entry checksum before returning them.
func (c *Client) Download(ctx context.Context, entry index.VersionEntry) ([]byte, error) {
	target, err := c.packageURL(entry)
	if err != nil {
		return nil, fmt.Errorf("downloading package: %w", err)
	}

	body, err := c.getURL(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("downloading %s %s: %w", entry.SkillID, entry.Version, err)
	}

	if got := digest.FromBytes(body).String(); got != entry.Checksum {
		return nil, fmt.Errorf("downloading %s %s: recorded %s, got %s: %w",
			entry.SkillID, entry.Version, entry.Checksum, got, ErrChecksumMismatch)
	}
	return body, nil
}

// packageURL picks the download location for an entry: the URL recorded at
// publish time when it is fetchable over HTTP, otherwise the registry's
// conventional packages path.
func (c *Client) packageURL(entry index.VersionEntry) (string, error) {
	if entry.DownloadURL != "" {
		u, err := url.Parse(entry.DownloadURL)
		if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			return entry.DownloadURL, nil
		}
	}

	scoped, err := name.Parse(entry.SkillID)
	if err != nil {
		return "", err
	}
	u := *c.baseURL
	u.Path = path.Join(u.Path, "packages", scoped.Scope, scoped.Name,
		fmt.Sprintf("%s-%s.zip", scoped.Name, entry.Version))
	return u.String(), nil
}

// get performs a GET against a path under the registry base URL with retry
// on transient failures. Response codes are preserved as httperr codes on
// the returned error.
func (c *Client) get(ctx context.Context, relPath string) ([]byte, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, relPath)
	return c.getURL(ctx, u.String())
}

func (c *Client) getURL(ctx context.Context, rawURL string) ([]byte, error) {
	operation := func() ([]byte, error) {
		body, err := c.getOnce(ctx, rawURL)
		if err != nil && !httperr.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries))
}

func (c *Client) getOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if err := c.applyAuth(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors are worth retrying.
		return nil, httperr.WithCode(err, http.StatusServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httperr.New(
			fmt.Sprintf("registry returned %s for %s", resp.Status, rawURL),
			resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPackageSize+1))
	if err != nil {
		return nil, httperr.WithCode(fmt.Errorf("reading response: %w", err), http.StatusServiceUnavailable)
	}
	if len(body) > maxPackageSize {
		return nil, fmt.Errorf("response exceeds maximum size of %d bytes", maxPackageSize)
	}
	return body, nil
}

// applyAuth attaches the configured credential, validating that the value
// is legal in an HTTP header so a malformed secret cannot smuggle CRLF.
func (c *Client) applyAuth(req *http.Request) error {
	if c.authHeader == "" {
		return nil
	}
	secret := c.envReader.Getenv(c.authEnvVar)
	if secret == "" {
		return fmt.Errorf("auth environment variable %s is not set", c.authEnvVar)
	}
	value := c.authPrefix + secret
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("credential from %s is not a valid header value", c.authEnvVar)
	}
	req.Header.Set(c.authHeader, value)
	return nil
}
