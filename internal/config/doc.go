// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for entchat.
//
// Configuration is read from TOML with sensible defaults, environment
// variable overrides and validation.
//
// Configuration file location:
//   - ~/.entchat/config.toml (or the path given with --config)
//   - Built-in defaults when the file does not exist
//
// Every chat panel is declared in a [[panels]] table. Watch reloads the file
// on change and hands the validated result to a callback.
package config
