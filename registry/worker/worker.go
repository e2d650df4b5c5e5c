// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/fastskill/fastskill-core/manifest"
	"github.com/fastskill/fastskill-core/registry/blob"
	"github.com/fastskill/fastskill-core/registry/index"
	"github.com/fastskill/fastskill-core/registry/staging"
	"github.com/fastskill/fastskill-core/validation/archive"
	"github.com/fastskill/fastskill-core/validation/name"
	"github.com/fastskill/fastskill-core/version"
)

const (
	// defaultPollInterval is how often the worker scans staging for
	// pending uploads.
	defaultPollInterval = 5 * time.Second

	// defaultMaxRetries bounds requeues after transient failures such as
	// index lock timeouts.
	defaultMaxRetries = 3
)

// Worker validates staged uploads and publishes accepted ones.
type Worker struct {
	staging *staging.Manager
	idx     *index.Manager
	blobs   blob.Storage

	logger      *slog.Logger
	interval    time.Duration
	maxRetries  int
	maxFileSize int64
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithPollInterval overrides the default 5-second staging poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.interval = d
	}
}

// WithMaxRetries overrides the requeue budget for transient failures.
func WithMaxRetries(n int) Option {
	return func(w *Worker) {
		w.maxRetries = n
	}
}

// WithMaxFileSize overrides the per-file size cap applied during archive
// inspection.
func WithMaxFileSize(n int64) Option {
	return func(w *Worker) {
		w.maxFileSize = n
	}
}

// New creates a validation worker over the given staging area, index, and
// blob storage. blobs may be nil when no long-term blob storage is
// configured; accepted entries then carry no download URL.
func New(stagingMgr *staging.Manager, idx *index.Manager, blobs blob.Storage, opts ...Option) *Worker {
	w := &Worker{
		staging:    stagingMgr,
		idx:        idx,
		blobs:      blobs,
		logger:     slog.Default(),
		interval:   defaultPollInterval,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls staging until ctx is cancelled. It processes any already
// pending jobs immediately, then once per poll interval.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("validation worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.ProcessPending(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("validation worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessPending runs one validation pass over all currently pending jobs.
// Failures are recorded per job; a broken job never stops the pass.
func (w *Worker) ProcessPending(ctx context.Context) {
	pending, err := w.staging.PendingJobs()
	if err != nil {
		w.logger.Error("scanning pending jobs", "error", err)
		return
	}

	for _, record := range pending {
		if ctx.Err() != nil {
			return
		}
		w.processJob(ctx, record)
	}
}

// processJob validates a single staged upload. Panics are contained so one
// malformed package cannot take down the loop.
func (w *Worker) processJob(ctx context.Context, record *staging.Record) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic validating job", "job", record.JobID, "panic", r)
			w.reject(record, fmt.Sprintf("internal error: %v", r))
		}
	}()

	record.Status = staging.StatusValidating
	if err := w.staging.UpdateRecord(record); err != nil {
		w.logger.Error("marking job validating", "job", record.JobID, "error", err)
		return
	}

	pkgPath, err := w.staging.PackagePath(record)
	if err != nil {
		w.reject(record, err.Error())
		return
	}
	data, err := os.ReadFile(pkgPath)
	if err != nil {
		w.reject(record, fmt.Sprintf("reading staged package: %v", err))
		return
	}

	if got := digest.FromBytes(data).String(); got != record.Checksum {
		w.reject(record, fmt.Sprintf("checksum mismatch: recorded %s, got %s", record.Checksum, got))
		return
	}

	fm, err := archive.Inspect(data, w.maxFileSize)
	if err != nil {
		w.reject(record, err.Error())
		return
	}

	entry, errs := w.buildEntry(record, fm)
	if len(errs) > 0 {
		w.reject(record, errs...)
		return
	}

	// Blob first: the index must never reference a package that is not yet
	// downloadable. Without blob storage the entry carries no download URL
	// and clients fall back to the registry's packages path.
	var downloadURL string
	if w.blobs != nil {
		downloadURL, err = w.blobs.Store(ctx, record.SkillID, record.Version, bytes.NewReader(data))
		if err != nil {
			w.reject(record, fmt.Sprintf("storing package blob: %v", err))
			return
		}
		entry.DownloadURL = downloadURL
	}

	if err := w.idx.Publish(ctx, entry); err != nil {
		switch {
		case errors.Is(err, index.ErrLockTimeout):
			w.requeue(record, err)
		case errors.Is(err, index.ErrVersionConflict):
			w.reject(record, fmt.Sprintf("version %s is already published", record.Version))
		default:
			w.reject(record, fmt.Sprintf("publishing to index: %v", err))
		}
		return
	}

	record.Status = staging.StatusAccepted
	record.ValidationErrors = nil
	record.BlobURL = downloadURL
	if err := w.staging.UpdateRecord(record); err != nil {
		w.logger.Error("marking job accepted", "job", record.JobID, "error", err)
		return
	}
	w.logger.Info("accepted upload",
		"job", record.JobID, "skill", record.SkillID, "version", record.Version)
}

// buildEntry assembles the index entry for an upload, collecting every
// manifest consistency problem rather than stopping at the first.
func (w *Worker) buildEntry(record *staging.Record, fm *manifest.Frontmatter) (index.VersionEntry, []string) {
	var errs []string

	declared := name.Normalize(fm.SkillID())
	if declared != record.SkillID {
		errs = append(errs, fmt.Sprintf("manifest declares skill %q but upload is for %q", declared, record.SkillID))
	}
	if fm.Version != "" && fm.Version != record.Version {
		errs = append(errs, fmt.Sprintf("manifest declares version %q but upload is for %q", fm.Version, record.Version))
	}

	deps := make([]index.Dependency, 0, len(fm.Dependencies))
	for depName, constraint := range fm.Dependencies {
		if _, err := name.Parse(name.Normalize(depName)); err != nil {
			errs = append(errs, fmt.Sprintf("invalid dependency name %q: %v", depName, err))
			continue
		}
		if _, err := version.Parse(constraint); err != nil {
			errs = append(errs, fmt.Sprintf("invalid constraint %q for dependency %q: %v", constraint, depName, err))
			continue
		}
		deps = append(deps, index.Dependency{
			Name:       name.Normalize(depName),
			Constraint: constraint,
		})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	entry := index.VersionEntry{
		SkillID:      record.SkillID,
		Version:      record.Version,
		Checksum:     record.Checksum,
		Dependencies: deps,
		Features:     fm.Features,
		PublishedAt:  time.Now().UTC(),
	}
	if fm.Description != "" || fm.Author != "" || fm.License != "" || len(fm.Tags) > 0 || len(fm.Capabilities) > 0 {
		entry.Metadata = &index.EntryMetadata{
			Description:  fm.Description,
			Author:       fm.Author,
			License:      fm.License,
			Tags:         []string(fm.Tags),
			Capabilities: []string(fm.Capabilities),
		}
	}
	return entry, errs
}

// requeue puts a transiently failed job back in the pending queue, or
// rejects it once the retry budget is spent.
func (w *Worker) requeue(record *staging.Record, cause error) {
	record.RetryCount++
	if record.RetryCount > w.maxRetries {
		w.reject(record, fmt.Sprintf("index lock wait exhausted after %d retries: %v", w.maxRetries, cause))
		return
	}

	record.Status = staging.StatusPending
	if err := w.staging.UpdateRecord(record); err != nil {
		w.logger.Error("requeueing job", "job", record.JobID, "error", err)
		return
	}
	w.logger.Warn("requeued job after lock timeout",
		"job", record.JobID, "skill", record.SkillID, "retry", record.RetryCount)
}

func (w *Worker) reject(record *staging.Record, reasons ...string) {
	record.Status = staging.StatusRejected
	record.ValidationErrors = reasons
	if err := w.staging.UpdateRecord(record); err != nil {
		w.logger.Error("marking job rejected", "job", record.JobID, "error", err)
		return
	}
	w.logger.Warn("rejected upload",
		"job", record.JobID, "skill", record.SkillID, "version", record.Version, "reasons", reasons)
}
