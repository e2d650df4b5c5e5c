// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package name

import (
	"fmt"
	"regexp"
	"strings"
)

var validComponentRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-.]*$`)

// ScopedName is a parsed "scope/skill-name" identifier.
type ScopedName struct {
	Scope string
	Name  string
}

// String returns the canonical "scope/skill-name" form.
func (s ScopedName) String() string {
	return s.Scope + "/" + s.Name
}

// Normalize rewrites alternate scoped spellings to the canonical
// "scope/skill-name" form: a leading "@" is stripped and ":" separators
// become "/". Unscoped names are returned unchanged.
func Normalize(scoped string) string {
	trimmed := strings.TrimSpace(scoped)
	trimmed = strings.TrimPrefix(trimmed, "@")
	return strings.ReplaceAll(trimmed, ":", "/")
}

// Parse normalizes and splits a scoped identifier, validating both
// components. The identifier must contain exactly one separator.
func Parse(scoped string) (ScopedName, error) {
	normalized := Normalize(scoped)

	parts := strings.Split(normalized, "/")
	if len(parts) != 2 {
		return ScopedName{}, fmt.Errorf("skill id %q must be in scope/skill-name form", scoped)
	}

	if err := ValidateComponent(parts[0]); err != nil {
		return ScopedName{}, fmt.Errorf("invalid scope in %q: %w", scoped, err)
	}
	if err := ValidateComponent(parts[1]); err != nil {
		return ScopedName{}, fmt.Errorf("invalid skill name in %q: %w", scoped, err)
	}

	return ScopedName{Scope: parts[0], Name: parts[1]}, nil
}

// ValidateComponent validates a single scope or skill-name component.
// Components are lowercase alphanumeric with interior underscores, dashes,
// and dots; they double as filesystem path segments, so path metacharacters
// and traversal sequences are rejected.
func ValidateComponent(component string) error {
	if component == "" || strings.TrimSpace(component) == "" {
		return fmt.Errorf("component cannot be empty or consist only of whitespace")
	}

	if strings.Contains(component, "\x00") {
		return fmt.Errorf("component cannot contain null bytes")
	}

	if component != strings.ToLower(component) {
		return fmt.Errorf("component must be lowercase: %q", component)
	}

	if component == "." || component == ".." || strings.Contains(component, "..") {
		return fmt.Errorf("component cannot contain path traversal sequences: %q", component)
	}

	if !validComponentRegex.MatchString(component) {
		return fmt.Errorf(
			"component can only contain lowercase alphanumeric characters, underscores, dashes, and dots, and must not start with a separator: %q",
			component,
		)
	}

	return nil
}
