// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package env provides an interface-based abstraction for environment variable
access, enabling dependency injection and testing isolation.

Source authentication in fastskill references credentials by environment
variable name (for example `token_env: GITHUB_TOKEN` in sources.yaml), so
every component that resolves credentials accepts an env.Reader rather than
calling os.Getenv directly.

# Basic Usage

Use OSReader to read environment variables via the standard os package:

	reader := &env.OSReader{}
	value := reader.Getenv("GITHUB_TOKEN")

# Testing

Tests substitute a MapReader, or the generated mock in the mocks
sub-package:

	ctrl := gomock.NewController(t)
	mock := mocks.NewMockReader(ctrl)
	mock.EXPECT().Getenv("GITHUB_TOKEN").Return("test-value")
*/
package env
