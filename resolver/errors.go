// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolver

import "errors"

var (
	// ErrNotFound is returned when no source offers a candidate matching
	// the requested skill and constraint.
	ErrNotFound = errors.New("no matching skill version found")

	// ErrAmbiguous is returned by the Explicit strategy when more than one
	// source offers the skill and no source was named.
	ErrAmbiguous = errors.New("skill is offered by multiple sources")

	// ErrBackend is returned when a required source could not be queried:
	// the explicitly requested one, or every configured source at once.
	ErrBackend = errors.New("source backend failure")
)
