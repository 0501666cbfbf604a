// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local key-value store behind panel history,
// resolved conversation ids and the user identity.
//
// All values are strings. The store is read when a panel is created and
// written on every mutation, so backends favour simple durable writes over
// throughput.
//
// # Key Types
//
//   - KV: Get / Set / Delete / Keys / Close
//   - SQLite: single-connection modernc.org/sqlite table (default backend)
//   - File: one JSON object rewritten atomically on every change
//   - Memory: process-local map, also the fallback when disk is unavailable
//   - Resilient: wraps a KV and degrades to Memory after the first failure
//
// # Usage
//
//	kv, err := storage.Open(storage.BackendSQLite, path, logger)
//	defer kv.Close()
//	userID, _ := storage.UserID(kv)
//
// # Storage Location
//
// By default the database lives at ~/.entchat/entchat.db.
package storage
