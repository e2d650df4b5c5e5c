// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package worker runs the registry validation loop.

The worker polls staging for pending uploads and processes each job in
isolation: it re-hashes the staged package against the recorded checksum,
runs the archive safety checks, verifies the manifest agrees with the
upload, copies the package into blob storage, and publishes the version to
the index. Any validation failure rejects the job with recorded errors; a
panic in one job is contained and rejects only that job.

Index lock timeouts are the one transient failure: the job is requeued as
pending with a bounded retry budget instead of being rejected outright.
*/
package worker
