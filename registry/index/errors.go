// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package index

import "errors"

var (
	// ErrVersionConflict is returned when publishing a version that already
	// exists in the skill's index.
	ErrVersionConflict = errors.New("version already published")

	// ErrLockTimeout is returned when the per-skill write lock could not be
	// acquired within the manager's lock timeout.
	ErrLockTimeout = errors.New("timed out waiting for index lock")

	// ErrNotFound is returned when a skill or version is absent from the index.
	ErrNotFound = errors.New("not found in index")
)
