// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package resolver turns a requested skill name, optional version constraint,
optional explicit source, and a conflict strategy into exactly one winning
candidate across all configured sources.

The resolver builds an in-memory candidate set by querying every source for
its catalog. A source that fails to answer is recorded and skipped rather
than aborting the build; its failure only surfaces when that source was
explicitly requested, or when no source could be queried at all.

Resolution is deterministic: given the same candidate set and inputs, the
same candidate always wins.
*/
package resolver
