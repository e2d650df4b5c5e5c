// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package index implements the append-only, per-skill version index that backs
skill publication.

Each skill owns one index file at {root}/{scope}/{name} containing one
compact JSON document per line, one line per published version. Readers
never take locks: they only ever observe complete files, because writers
replace the file atomically via a temp-write-then-rename under an advisory
lock held on a sidecar .lock file.

The Manager serializes writers per skill with a bounded lock wait, so a
crashed or wedged process can delay concurrent publishes by at most the
lock timeout rather than deadlocking them.
*/
package index
