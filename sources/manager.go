// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fastskill/fastskill-core/env"
)

// Factory builds a backend client from a source definition. The default
// factory dispatches on the definition's kind; tests inject their own.
type Factory func(Definition) (Client, error)

// Manager holds the configured sources and their lazily built clients.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	defs    map[string]Definition
	clients map[string]Client

	factory    Factory
	httpClient *http.Client
	envReader  env.Reader
	logger     *slog.Logger
	cacheTTL   time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithFactory replaces the backend client factory.
func WithFactory(f Factory) ManagerOption {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithHTTPClient replaces the HTTP client handed to network backends.
func WithHTTPClient(hc *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = hc
	}
}

// WithEnvReader sets the environment reader used to resolve credentials.
// Defaults to the process environment.
func WithEnvReader(r env.Reader) ManagerOption {
	return func(m *Manager) {
		m.envReader = r
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithCacheTTL overrides how long marketplace documents are cached.
func WithCacheTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.cacheTTL = ttl
	}
}

// NewManager creates a Manager over the given definitions. Definitions are
// validated and must have unique names.
func NewManager(defs []Definition, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		defs:       make(map[string]Definition, len(defs)),
		clients:    make(map[string]Client),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		envReader:  &env.OSReader{},
		logger:     slog.Default(),
		cacheTTL:   defaultMarketplaceTTL,
	}
	m.factory = m.buildClient
	for _, opt := range opts {
		opt(m)
	}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m.defs[def.Name]; dup {
			return nil, fmt.Errorf("source %s: %w", def.Name, ErrDuplicateSource)
		}
		m.defs[def.Name] = def
	}
	return m, nil
}

// List returns all definitions sorted by priority (lower first), with name
// as the tie-breaker so the order is deterministic.
func (m *Manager) List() []Definition {
	m.mu.Lock()
	defer m.mu.Unlock()

	defs := make([]Definition, 0, len(m.defs))
	for _, def := range m.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Priority != defs[j].Priority {
			return defs[i].Priority < defs[j].Priority
		}
		return defs[i].Name < defs[j].Name
	})
	return defs
}

// Get returns the definition for a source name.
func (m *Manager) Get(sourceName string) (Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, ok := m.defs[sourceName]
	if !ok {
		return Definition{}, fmt.Errorf("source %s: %w", sourceName, ErrSourceNotFound)
	}
	return def, nil
}

// Add registers a new source. Fails with ErrDuplicateSource if the name is
// already configured.
func (m *Manager) Add(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.defs[def.Name]; dup {
		return fmt.Errorf("source %s: %w", def.Name, ErrDuplicateSource)
	}
	m.defs[def.Name] = def
	return nil
}

// Remove deletes a source and drops its cached client.
func (m *Manager) Remove(sourceName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.defs[sourceName]; !ok {
		return fmt.Errorf("source %s: %w", sourceName, ErrSourceNotFound)
	}
	delete(m.defs, sourceName)
	delete(m.clients, sourceName)
	return nil
}

// Client returns the backend client for a source, building and caching it
// on first use. Credentials are resolved during construction.
func (m *Manager) Client(sourceName string) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[sourceName]; ok {
		return c, nil
	}
	def, ok := m.defs[sourceName]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", sourceName, ErrSourceNotFound)
	}

	c, err := m.factory(def)
	if err != nil {
		return nil, fmt.Errorf("building client for source %s: %w", sourceName, err)
	}
	m.clients[sourceName] = c
	return c, nil
}

// buildClient is the default factory: one constructor per source kind.
func (m *Manager) buildClient(def Definition) (Client, error) {
	switch def.Kind {
	case KindGit:
		return newMarketplaceClient(def, m.httpClient, m.envReader, m.logger, m.cacheTTL)
	case KindZipURL:
		return newZipURLClient(def, m.httpClient, m.envReader, m.logger, m.cacheTTL)
	case KindLocal:
		return newLocalClient(def, m.logger)
	case KindHTTPRegistry:
		return newRegistryClient(def, m.httpClient, m.envReader, m.logger)
	}
	return nil, fmt.Errorf("unknown source kind %q", def.Kind)
}
