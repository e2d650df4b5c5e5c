// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package staging

import "time"

// Status is the lifecycle state of a staged upload.
type Status string

// Staged upload lifecycle states.
const (
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
)

// Terminal reports whether the status will never change again.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Record is the metadata.json document stored alongside a staged package.
type Record struct {
	// JobID uniquely identifies this upload, e.g. "job_9f86d081e5a4...".
	JobID string `json:"job_id"`

	// SkillID is the scoped skill identifier, e.g. "acme/greeter".
	SkillID string `json:"skill_id"`

	// Version is the semantic version being published.
	Version string `json:"version"`

	// Checksum is the package digest in canonical "sha256:<hex>" form,
	// computed at upload time.
	Checksum string `json:"checksum"`

	// UploadedAt records when the package was staged.
	UploadedAt time.Time `json:"uploaded_at"`

	// UploadedBy identifies the uploader, when known.
	UploadedBy string `json:"uploaded_by,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// ValidationErrors lists why a rejected upload failed.
	ValidationErrors []string `json:"validation_errors,omitempty"`

	// BlobURL is where the package is served from once accepted.
	BlobURL string `json:"blob_url,omitempty"`

	// RetryCount tracks how many times validation was requeued after a
	// transient failure such as an index lock timeout.
	RetryCount int `json:"retry_count,omitempty"`
}
