// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fastskill/fastskill-core/registry/index"
	"github.com/fastskill/fastskill-core/sources"
	"github.com/fastskill/fastskill-core/validation/name"
	"github.com/fastskill/fastskill-core/version"
)

// ConflictStrategy is the policy used to pick one winner when multiple
// sources offer the same skill.
type ConflictStrategy string

// Supported conflict strategies.
const (
	// StrategyPriority keeps candidates from the lowest-numbered-priority
	// source, then picks the maximum version. The default.
	StrategyPriority ConflictStrategy = "priority"

	// StrategyHighestVersion picks the maximum satisfying version across
	// all sources, breaking version ties by source priority.
	StrategyHighestVersion ConflictStrategy = "highest_version"

	// StrategyExplicit requires the choice to be unambiguous: if more than
	// one source offers the skill and none was named, resolution fails.
	StrategyExplicit ConflictStrategy = "explicit"
)

// Candidate is one resolvable skill version: where it comes from and the
// index entry needed to fetch it. Candidates are ephemeral, produced only
// during resolution, never persisted.
type Candidate struct {
	SkillID        string
	Version        string
	SourceName     string
	SourcePriority uint
	Entry          index.VersionEntry
}

// Resolver answers "which single package satisfies this request" over the
// sources held by a Manager. The candidate set is built once and reused
// until Invalidate is called; a Resolver must not be shared across
// goroutines without external synchronization of Resolve/Invalidate
// ordering (the internal state itself is mutex-protected).
type Resolver struct {
	manager *sources.Manager
	logger  *slog.Logger

	mu          sync.Mutex
	built       bool
	candidates  []Candidate
	backendErrs map[string]error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver over the given source manager.
func New(manager *sources.Manager, opts ...Option) *Resolver {
	r := &Resolver{
		manager: manager,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invalidate discards the cached candidate set so the next Resolve rebuilds
// it from the sources.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built = false
	r.candidates = nil
	r.backendErrs = nil
}

// BuildIndex queries every configured source for its catalog and caches the
// combined candidate set. A source that errors is recorded and contributes
// no candidates; BuildIndex fails only when sources are configured and none
// of them could be queried.
func (r *Resolver) BuildIndex(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildLocked(ctx)
}

func (r *Resolver) buildLocked(ctx context.Context) error {
	if r.built {
		return nil
	}

	defs := r.manager.List()
	candidates := []Candidate{}
	backendErrs := make(map[string]error)

	for _, def := range defs {
		sourceCandidates, err := r.querySource(ctx, def)
		if err != nil {
			r.logger.Warn("source excluded from candidate set",
				"source", def.Name, "error", err)
			backendErrs[def.Name] = err
			continue
		}
		candidates = append(candidates, sourceCandidates...)
	}

	if len(defs) > 0 && len(backendErrs) == len(defs) {
		return fmt.Errorf("all %d sources failed: %w", len(defs), ErrBackend)
	}

	r.candidates = candidates
	r.backendErrs = backendErrs
	r.built = true
	return nil
}

func (r *Resolver) querySource(ctx context.Context, def sources.Definition) ([]Candidate, error) {
	client, err := r.manager.Client(def.Name)
	if err != nil {
		return nil, err
	}

	ids, err := client.ListSkills(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, id := range ids {
		entries, err := client.GetVersions(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			candidates = append(candidates, Candidate{
				SkillID:        id,
				Version:        entry.Version,
				SourceName:     def.Name,
				SourcePriority: def.Priority,
				Entry:          entry,
			})
		}
	}
	return candidates, nil
}

// Resolve picks exactly one candidate for a skill. The constraint may be
// version.Any; an empty explicitSource means any source; strategy defaults
// to StrategyPriority when empty.
func (r *Resolver) Resolve(ctx context.Context, skillName string, constraint version.Constraint, explicitSource string, strategy ConflictStrategy) (Candidate, error) {
	if strategy == "" {
		strategy = StrategyPriority
	}
	skillID := name.Normalize(skillName)

	// Named sources must exist before any index work.
	if explicitSource != "" {
		if _, err := r.manager.Get(explicitSource); err != nil {
			return Candidate{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.buildLocked(ctx); err != nil {
		return Candidate{}, err
	}

	// A backend failure is surfaced when it hides the very source the
	// caller asked for.
	if explicitSource != "" {
		if backendErr, failed := r.backendErrs[explicitSource]; failed {
			return Candidate{}, fmt.Errorf("source %s: %w: %v", explicitSource, ErrBackend, backendErr)
		}
	}

	matching := make([]Candidate, 0)
	for _, c := range r.candidates {
		if c.SkillID != skillID {
			continue
		}
		if explicitSource != "" && c.SourceName != explicitSource {
			continue
		}
		ok, err := constraint.Matches(c.Version)
		if err != nil {
			r.logger.Warn("skipping candidate with invalid version",
				"skill", c.SkillID, "version", c.Version, "source", c.SourceName)
			continue
		}
		if ok {
			matching = append(matching, c)
		}
	}

	winner, err := applyStrategy(matching, strategy, explicitSource)
	if err != nil {
		return Candidate{}, err
	}
	if winner == nil {
		return Candidate{}, fmt.Errorf("resolving %s: %w", skillID, ErrNotFound)
	}
	return *winner, nil
}

// applyStrategy narrows candidates by policy, then by maximum version.
func applyStrategy(matching []Candidate, strategy ConflictStrategy, explicitSource string) (*Candidate, error) {
	if len(matching) == 0 {
		return nil, nil
	}

	switch strategy {
	case StrategyPriority:
		best := matching[0].SourcePriority
		for _, c := range matching[1:] {
			if c.SourcePriority < best {
				best = c.SourcePriority
			}
		}
		narrowed := make([]Candidate, 0, len(matching))
		for _, c := range matching {
			if c.SourcePriority == best {
				narrowed = append(narrowed, c)
			}
		}
		return maxVersion(narrowed), nil

	case StrategyHighestVersion:
		return maxVersion(matching), nil

	case StrategyExplicit:
		if explicitSource == "" {
			distinct := make(map[string]struct{})
			for _, c := range matching {
				distinct[c.SourceName] = struct{}{}
			}
			if len(distinct) > 1 {
				return nil, fmt.Errorf("resolving %s: %w", matching[0].SkillID, ErrAmbiguous)
			}
		}
		return maxVersion(matching), nil
	}

	return nil, fmt.Errorf("unknown conflict strategy %q", strategy)
}

// maxVersion picks the highest version; equal versions from different
// sources fall to the lower-numbered priority so the result is stable.
func maxVersion(candidates []Candidate) *Candidate {
	if len(candidates) == 0 {
		return nil
	}

	winner := candidates[0]
	for _, c := range candidates[1:] {
		cmp, err := version.Compare(c.Version, winner.Version)
		if err != nil {
			continue
		}
		if cmp > 0 || (cmp == 0 && c.SourcePriority < winner.SourcePriority) {
			winner = c
		}
	}
	return &winner
}
