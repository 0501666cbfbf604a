// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the config, storage and
// model packages.
//
//   - AtomicWriteFile: crash-safe file replacement with fsync, used for the
//     config file and the JSON file store
//   - TruncateRunes: rune-safe truncation used for entry titles
package util
