// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fastskill/fastskill-core/logging"
	"github.com/fastskill/fastskill-core/registry/index"
	"github.com/fastskill/fastskill-core/sources"
	"github.com/fastskill/fastskill-core/sources/mocks"
	"github.com/fastskill/fastskill-core/version"
)

// catalog maps skill id to the versions one source offers.
type catalog map[string][]string

// newFixture builds a Manager whose factory hands out mock clients serving
// the given per-source catalogs, plus a Resolver over it.
func newFixture(t *testing.T, defs []sources.Definition, catalogs map[string]catalog, broken map[string]error) *Resolver {
	t.Helper()

	ctrl := gomock.NewController(t)
	factory := func(def sources.Definition) (sources.Client, error) {
		if err, ok := broken[def.Name]; ok {
			return nil, err
		}

		cat := catalogs[def.Name]
		mock := mocks.NewMockClient(ctrl)
		mock.EXPECT().Definition().Return(def).AnyTimes()

		var ids []string
		for id := range cat {
			ids = append(ids, id)
		}
		mock.EXPECT().ListSkills(gomock.Any()).Return(ids, nil).AnyTimes()
		mock.EXPECT().GetVersions(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, skillID string) ([]index.VersionEntry, error) {
				entries := []index.VersionEntry{}
				for _, v := range cat[skillID] {
					entries = append(entries, index.VersionEntry{
						SkillID:  skillID,
						Version:  v,
						Checksum: fmt.Sprintf("sha256:%s", v),
					})
				}
				return entries, nil
			}).AnyTimes()
		return mock, nil
	}

	m, err := sources.NewManager(defs, sources.WithFactory(factory), sources.WithLogger(logging.Discard()))
	require.NoError(t, err)
	return New(m, WithLogger(logging.Discard()))
}

func twoSourceDefs() []sources.Definition {
	return []sources.Definition{
		{Name: "primary", Kind: sources.KindHTTPRegistry, Location: "https://primary.example.com", Priority: 0},
		{Name: "secondary", Kind: sources.KindHTTPRegistry, Location: "https://secondary.example.com", Priority: 5},
	}
}

func TestResolve_PriorityStrategyIsDeterministic(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary":   {"acme/foo": {"1.2.0"}},
		"secondary": {"acme/foo": {"1.9.0"}},
	}, nil)

	// The lower-numbered priority wins even though it offers an older
	// version; repeated resolution never flips the answer.
	for range 5 {
		got, err := r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyPriority)
		require.NoError(t, err)
		assert.Equal(t, "1.2.0", got.Version)
		assert.Equal(t, "primary", got.SourceName)
	}
}

func TestResolve_PriorityPicksMaxVersionWithinSource(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary": {"acme/foo": {"1.0.0", "1.4.0", "1.2.0"}},
	}, nil)

	got, err := r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyPriority)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", got.Version)
}

func TestResolve_HighestVersionStrategy(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary":   {"acme/foo": {"1.2.0"}},
		"secondary": {"acme/foo": {"1.9.0"}},
	}, nil)

	got, err := r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyHighestVersion)
	require.NoError(t, err)
	assert.Equal(t, "1.9.0", got.Version)
	assert.Equal(t, "secondary", got.SourceName)
}

func TestResolve_HighestVersion_TieFallsToPriority(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary":   {"acme/foo": {"2.0.0"}},
		"secondary": {"acme/foo": {"2.0.0"}},
	}, nil)

	got, err := r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyHighestVersion)
	require.NoError(t, err)
	assert.Equal(t, "primary", got.SourceName)
}

func TestResolve_ConstraintFiltering(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary": {"acme/foo": {"1.0.0", "1.5.0", "2.0.0"}},
	}, nil)

	got, err := r.Resolve(t.Context(), "acme/foo", version.MustParse("^1.0.0"), "", StrategyPriority)
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", got.Version)

	_, err = r.Resolve(t.Context(), "acme/foo", version.MustParse(">=3.0.0"), "", StrategyPriority)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_ExplicitSource(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary":   {"acme/foo": {"1.2.0"}},
		"secondary": {"acme/foo": {"1.9.0"}},
	}, nil)

	got, err := r.Resolve(t.Context(), "acme/foo", version.Any, "secondary", StrategyPriority)
	require.NoError(t, err)
	assert.Equal(t, "1.9.0", got.Version)
	assert.Equal(t, "secondary", got.SourceName)
}

func TestResolve_ExplicitSource_Unknown(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary": {"acme/foo": {"1.2.0"}},
	}, nil)

	_, err := r.Resolve(t.Context(), "acme/foo", version.Any, "ghost", StrategyPriority)
	require.ErrorIs(t, err, sources.ErrSourceNotFound)
}

func TestResolve_ExplicitStrategy(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary":   {"acme/foo": {"1.2.0"}},
		"secondary": {"acme/foo": {"1.9.0"}, "acme/only": {"0.1.0"}},
	}, nil)

	// Two sources offer acme/foo and none was named.
	_, err := r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyExplicit)
	require.ErrorIs(t, err, ErrAmbiguous)

	// Naming a source disambiguates.
	got, err := r.Resolve(t.Context(), "acme/foo", version.Any, "primary", StrategyExplicit)
	require.NoError(t, err)
	assert.Equal(t, "primary", got.SourceName)

	// A single offering source needs no disambiguation.
	got, err = r.Resolve(t.Context(), "acme/only", version.Any, "", StrategyExplicit)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", got.Version)
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary": {"acme/foo": {"1.2.0"}},
	}, nil)

	_, err := r.Resolve(t.Context(), "acme/missing", version.Any, "", StrategyPriority)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_NormalizesSkillName(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"primary": {"acme/foo": {"1.2.0"}},
	}, nil)

	got, err := r.Resolve(t.Context(), "@acme/foo", version.Any, "", StrategyPriority)
	require.NoError(t, err)
	assert.Equal(t, "acme/foo", got.SkillID)

	got, err = r.Resolve(t.Context(), "acme:foo", version.Any, "", StrategyPriority)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got.Version)
}

func TestResolve_ToleratesPartialBackendFailure(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), map[string]catalog{
		"secondary": {"acme/foo": {"1.9.0"}},
	}, map[string]error{
		"primary": errors.New("connection refused"),
	})

	// The healthy source still answers.
	got, err := r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyPriority)
	require.NoError(t, err)
	assert.Equal(t, "secondary", got.SourceName)

	// Asking for the broken source by name surfaces its failure.
	_, err = r.Resolve(t.Context(), "acme/foo", version.Any, "primary", StrategyPriority)
	require.ErrorIs(t, err, ErrBackend)
}

func TestResolve_AllSourcesFailing(t *testing.T) {
	t.Parallel()

	r := newFixture(t, twoSourceDefs(), nil, map[string]error{
		"primary":   errors.New("connection refused"),
		"secondary": errors.New("dns failure"),
	})

	_, err := r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyPriority)
	require.ErrorIs(t, err, ErrBackend)
}

func TestResolver_IndexCachedUntilInvalidate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mock := mocks.NewMockClient(ctrl)
	def := sources.Definition{Name: "only", Kind: sources.KindHTTPRegistry, Location: "https://x.example.com", Priority: 0}
	mock.EXPECT().Definition().Return(def).AnyTimes()
	// Exactly two catalog builds: one initial, one after Invalidate.
	mock.EXPECT().ListSkills(gomock.Any()).Return([]string{"acme/foo"}, nil).Times(2)
	mock.EXPECT().GetVersions(gomock.Any(), "acme/foo").Return(
		[]index.VersionEntry{{SkillID: "acme/foo", Version: "1.0.0"}}, nil).Times(2)

	m, err := sources.NewManager([]sources.Definition{def},
		sources.WithFactory(func(sources.Definition) (sources.Client, error) { return mock, nil }),
		sources.WithLogger(logging.Discard()))
	require.NoError(t, err)
	r := New(m, WithLogger(logging.Discard()))

	for range 3 {
		_, err := r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyPriority)
		require.NoError(t, err)
	}

	r.Invalidate()
	_, err = r.Resolve(t.Context(), "acme/foo", version.Any, "", StrategyPriority)
	require.NoError(t, err)
}
