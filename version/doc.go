// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package version provides semantic version constraint parsing and
// evaluation for skill resolution.
//
// A constraint is one of: an exact version ("1.2.3"), a caret range
// ("^1.2.3", anything that does not increment the leftmost non-zero
// component), a tilde range ("~1.2.0", patch-level movement only), a
// comparator ( ">=1.0.0", "<=2.0.0"), a comma-joined range
// (">=1.0.0,<2.0.0"), or the wildcard ("", "*") matching every valid
// version. Constraints are pure values with no I/O.
package version
