// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package sources manages the configured skill sources and the backend
clients that talk to them.

A source is a named, prioritized place skills come from. Four kinds are
supported: a git-hosted marketplace manifest, a single zip archive URL, a
local directory tree, and this system's own HTTP registry. Every kind is
exposed through the same Client capability set (list skills, get skill,
get versions, download), so the resolver never knows which backend a
candidate came from.

The Manager owns the ordered source collection, lazily instantiates one
client per source, and resolves authentication material from the
environment at client construction time only.
*/
package sources
