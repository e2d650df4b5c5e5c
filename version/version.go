// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Constraint is a parsed predicate over semantic versions.
// The zero value matches every valid version.
type Constraint struct {
	raw   string
	check *semver.Constraints
}

// Any is the unconstrained predicate: it matches every valid version and
// callers resolving against it should prefer the maximum.
var Any = Constraint{}

// Parse parses a constraint expression. An empty string or "*" yields the
// unconstrained predicate. Comparator prefixes (^, ~, >=, >, <=, <) and
// comma-joined ranges such as ">=1.0.0,<2.0.0" are accepted; a bare version
// string means exact match.
func Parse(text string) (Constraint, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "*" {
		return Any, nil
	}

	check, err := semver.NewConstraint(text)
	if err != nil {
		return Constraint{}, fmt.Errorf("%w: %q", ErrInvalidConstraint, text)
	}

	return Constraint{raw: text, check: check}, nil
}

// MustParse parses a constraint expression and panics on failure.
// For use in tests and package-level declarations only.
func MustParse(text string) Constraint {
	c, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return c
}

// IsAny reports whether the constraint matches every valid version.
func (c Constraint) IsAny() bool {
	return c.check == nil
}

// String returns the original constraint expression, or "*" for the
// unconstrained predicate.
func (c Constraint) String() string {
	if c.check == nil {
		return "*"
	}
	return c.raw
}

// Matches reports whether the given version string satisfies the constraint.
// Returns ErrInvalidVersion if the string does not parse as a semantic
// version.
func (c Constraint) Matches(version string) (bool, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return c.MatchesVersion(v), nil
}

// MatchesVersion reports whether a parsed version satisfies the constraint.
func (c Constraint) MatchesVersion(v *semver.Version) bool {
	if c.check == nil {
		return true
	}
	return c.check.Check(v)
}

// Compare compares two version strings, returning -1, 0, or 1.
func Compare(a, b string) (int, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, a)
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, b)
	}
	return va.Compare(vb), nil
}

// IsNewer reports whether version a is strictly newer than version b.
func IsNewer(a, b string) (bool, error) {
	cmp, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return cmp > 0, nil
}

// Validate reports whether the given string is a valid semantic version,
// returning ErrInvalidVersion if not.
func Validate(version string) error {
	if _, err := semver.NewVersion(version); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return nil
}

// Latest returns the maximum version among the given version strings.
// Strings that do not parse as semantic versions are skipped; if none
// parse, ErrInvalidVersion is returned.
func Latest(versions []string) (string, error) {
	var best *semver.Version
	var bestRaw string

	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = raw
		}
	}

	if best == nil {
		return "", fmt.Errorf("%w: no parsable versions among %d candidates", ErrInvalidVersion, len(versions))
	}
	return bestRaw, nil
}
