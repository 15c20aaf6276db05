// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree framework for the drover
// binary: declarative command definitions with pflag flag sets,
// structured help output, typo suggestions for unknown commands and
// flags, and exit-code plumbing.
package cli
