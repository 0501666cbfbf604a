// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package threads owns one chat panel's state: its history entries, the
// resolved conversation ids, and the rendered messages of every thread.
//
// Entries and the panel's active conversation id are persisted to a
// storage.KV on every mutation and read back only when the Store is opened.
// Thread contents live in memory and are restored from the server on demand.
//
// # Key Types
//
//   - Store: per-panel state with entry and thread operations
//   - PanelState: snapshot of the panel's persisted and transient fields
//   - Options: panel key, entry cap, greeting text
//
// # Usage
//
//	store := threads.Open(kv, threads.Options{PanelKey: "main", Greeting: "Hello!"})
//	id := store.CreateEntry("How do I register?")
//	store.BindConversation(id, "c1")
//
// A Store is not safe for concurrent use; it belongs to the goroutine that
// drives the panel.
package threads
