// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

import "errors"

var (
	// ErrSourceNotFound is returned when no configured source has the
	// requested name.
	ErrSourceNotFound = errors.New("source not found")

	// ErrDuplicateSource is returned when adding a source whose name is
	// already configured.
	ErrDuplicateSource = errors.New("source name already configured")

	// ErrSkillNotFound is returned when a backend has no entry for the
	// requested skill or version.
	ErrSkillNotFound = errors.New("skill not found in source")
)
