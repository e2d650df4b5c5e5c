// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package staging holds uploaded skill packages while they await validation.

An upload lands as a zip archive plus a metadata.json record under
{root}/{scope}/{name}/{version}/. Each record carries a unique job id and a
lifecycle status: pending -> validating -> accepted | rejected. The
validation worker polls PendingJobs, runs the checks, and moves the record
to a terminal status; accepted packages are copied into blob storage and
published to the index.
*/
package staging
