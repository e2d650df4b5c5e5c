// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logging provides pre-configured structured loggers built on
// [log/slog].
//
// Components in this module accept a *slog.Logger rather than constructing
// their own, so callers control format, level, and destination in one place:
//
//	logger := logging.New(
//		logging.WithFormat(logging.FormatText),
//		logging.WithLevel(slog.LevelDebug),
//	)
package logging
