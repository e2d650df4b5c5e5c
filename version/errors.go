// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package version

import "errors"

var (
	// ErrInvalidVersion indicates a string that does not parse as a semantic version.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrInvalidConstraint indicates a constraint expression that could not be parsed.
	ErrInvalidConstraint = errors.New("invalid version constraint")
)
