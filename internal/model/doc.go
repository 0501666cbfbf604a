// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for history entries, threads
// and messages.
//
// This package defines the core domain types shared by the thread store,
// the history controller, the send orchestrator and the views.
//
// # Key Types
//
//   - HistoryEntry: persisted handle {id, title, conversationId} for one thread
//   - Thread: ordered messages bound to one entry, plus its fetch cache key
//   - Message: single message with role, text and pending/failed state
//   - Role: user or assistant
//
// # Usage
//
//	entry := model.NewHistoryEntry("How do I apply for a permit?")
//	thread := model.NewThread(entry.ID)
//	thread.Add(model.NewUserMessage("How do I apply for a permit?"))
//
// Titles are normalized with NormalizeTitle; entry and user identifiers are
// produced by NewEntryID and NewUserID.
package model
