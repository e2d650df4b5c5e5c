// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package name provides validation and normalization for scoped skill
// identifiers of the form "scope/skill-name".
package name
